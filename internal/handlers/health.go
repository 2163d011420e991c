package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/store"
	"github.com/go-sessionguard/sessionguard/internal/version"
)

// HealthHandler reports liveness of the backing stores. The database is
// nil when accounts live behind an upstream API.
type HealthHandler struct {
	store    *store.Store
	sessions cache.Cache[models.Profile]
}

func NewHealthHandler(s *store.Store, sessions cache.Cache[models.Profile]) *HealthHandler {
	return &HealthHandler{store: s, sessions: sessions}
}

// Health returns 200 when every configured backend answers, 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if h.store != nil {
		if err := h.store.Health(); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if err := h.sessions.Health(c.Request.Context()); err != nil {
		checks["session_cache"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["session_cache"] = "ok"
	}

	c.JSON(status, gin.H{
		"status":  http.StatusText(status),
		"version": version.String(),
		"checks":  checks,
	})
}
