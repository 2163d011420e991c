package bootstrap

import (
	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/handlers"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/services"
	"github.com/go-sessionguard/sessionguard/internal/store"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	session *handlers.SessionHandler
	health  *handlers.HealthHandler
}

func initializeHandlers(
	sessionService *services.SessionService,
	csrfStore *csrf.Store,
	cookieWriter *cookies.Writer,
	m core.Recorder,
	db *store.Store,
	sessionCache cache.Cache[models.Profile],
) handlerSet {
	return handlerSet{
		session: handlers.NewSessionHandler(sessionService, csrfStore, cookieWriter, m),
		health:  handlers.NewHealthHandler(db, sessionCache),
	}
}
