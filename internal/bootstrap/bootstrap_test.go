package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sessionguard/sessionguard/internal/config"
)

func TestInitializeUserStoreLocal(t *testing.T) {
	cfg := &config.Config{
		UserStoreMode:  config.UserStoreModeLocal,
		DatabaseDriver: "sqlite",
		DatabaseDSN:    ":memory:",
	}

	users, db, err := initializeUserStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, users)
	require.NotNil(t, db)
	assert.Equal(t, "local", users.Name())
}

func TestInitializeUserStoreHTTPAPI(t *testing.T) {
	cfg := &config.Config{
		UserStoreMode:     config.UserStoreModeHTTPAPI,
		UserAPIURL:        "http://users.example.com",
		UserAPIAuthMode:   "none",
		UserAPIAuthHeader: "X-API-Secret",
	}

	users, db, err := initializeUserStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, users)
	assert.Nil(t, db)
	assert.Equal(t, "http_api", users.Name())
}

func TestInitializeUserStoreUnknownMode(t *testing.T) {
	_, _, err := initializeUserStore(&config.Config{UserStoreMode: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported user store mode")
}

func TestInitializeSessionCacheMemory(t *testing.T) {
	c, err := initializeSessionCache(&config.Config{
		SessionCacheType: config.SessionCacheTypeMemory,
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	_ = c.Close()
}

func TestSetupRateLimitingDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiters := setupRateLimiting(&config.Config{EnableRateLimit: false})
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.refresh)

	// A no-op limiter must let requests through
	r := gin.New()
	r.POST("/session/login", limiters.login, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/session/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRateLimitingMemory(t *testing.T) {
	limiters := setupRateLimiting(&config.Config{
		EnableRateLimit:  true,
		RateLimitStore:   config.RateLimitStoreMemory,
		LoginRateLimit:   10,
		RefreshRateLimit: 30,
		RateLimitCleanup: time.Minute,
	})
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.refresh)
}

func TestCreateHTTPServer(t *testing.T) {
	srv := createHTTPServer(&config.Config{ServerAddr: ":9999"}, gin.New())
	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
}

func TestGinModeMap(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ginModeMap[true])
	assert.Equal(t, gin.DebugMode, ginModeMap[false])
}
