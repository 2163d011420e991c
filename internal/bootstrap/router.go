package bootstrap

import (
	"log"
	"net/http"

	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/metrics"
	"github.com/go-sessionguard/sessionguard/internal/middleware"
	"github.com/go-sessionguard/sessionguard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	h handlerSet,
	gate *services.GateService,
	csrfStore *csrf.Store,
	cookieWriter *cookies.Writer,
	m core.Recorder,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(m))
	r.Use(gin.Logger(), gin.Recovery())

	setupSessionMiddleware(r, cfg)

	r.GET("/health", h.health.Health)
	setupMetricsEndpoint(r, cfg)

	rateLimiters := setupRateLimiting(cfg)
	setupAllRoutes(r, h, gate, csrfStore, cookieWriter, m, rateLimiters)

	logServerStartup(cfg)

	return r
}

// setupSessionMiddleware configures the signed browser session cookie
// that CSRF tokens bind to
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("sg_session", sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures the session lifecycle routes.
//
// Login is rate limited but needs no CSRF token: credentials never ride
// along automatically, so the request cannot be forged cross-site. The
// state-changing routes carry the CSRF guard; bearer clients pass it
// without a token.
func setupAllRoutes(
	r *gin.Engine,
	h handlerSet,
	gate *services.GateService,
	csrfStore *csrf.Store,
	cookieWriter *cookies.Writer,
	m core.Recorder,
	rateLimiters rateLimitMiddlewares,
) {
	csrfGuard := middleware.CSRFGuard(csrfStore, m)

	session := r.Group("/session")
	{
		session.GET("/csrf", h.session.IssueCSRF)
		session.POST("/login", rateLimiters.login, h.session.Login)
		session.POST("/logout", csrfGuard, h.session.Logout)
	}

	tokens := r.Group("/token")
	{
		tokens.POST("/refresh", rateLimiters.refresh, csrfGuard, h.session.Refresh)
	}

	// Routes behind the gate: a valid access token is required and a
	// mid-life token comes back rotated
	protected := r.Group("/session")
	protected.Use(middleware.RequireAuth(gate, cookieWriter))
	{
		protected.GET("/me", h.session.Me)
		protected.POST("/password", csrfGuard, h.session.ChangePassword)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("User store mode: %s", cfg.UserStoreMode)
	log.Printf("Session guard starting on %s", cfg.ServerAddr)
	log.Printf("Token refresh endpoint: %s/token/refresh", cfg.BaseURL)
	log.Printf("Default user: admin (check logs for password if first run)")
}
