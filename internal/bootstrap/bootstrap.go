package bootstrap

import (
	"log"
	"net/http"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/metrics"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"
	"github.com/go-sessionguard/sessionguard/internal/services"
	"github.com/go-sessionguard/sessionguard/internal/store"
	"github.com/go-sessionguard/sessionguard/internal/token"
	"github.com/go-sessionguard/sessionguard/internal/userstore"

	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB              *store.Store // nil when accounts live behind an upstream API
	Users           userstore.UserStore
	Codec           *token.Codec
	Issuer          *token.Issuer
	Revocations     *revocation.Store
	SessionCache    cache.Cache[models.Profile]
	CSRFStore       *csrf.Store
	MetricsRecorder core.Recorder

	// Services
	GateService    *services.GateService
	SessionService *services.SessionService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up the user store, token machinery,
// revocation list, session cache and metrics
func (app *Application) initializeInfrastructure() error {
	var err error

	// User store (local database or upstream HTTP API)
	app.Users, app.DB, err = initializeUserStore(app.Config)
	if err != nil {
		return err
	}

	// Token codec and issuer
	app.Codec, err = token.NewCodec(
		[]byte(app.Config.AccessTokenSecret),
		[]byte(app.Config.RefreshTokenSecret),
		app.Config.Issuer,
	)
	if err != nil {
		return err
	}
	app.Issuer = token.NewIssuer(
		app.Codec,
		app.Config.AccessTokenTTL,
		app.Config.RefreshTokenTTL,
		app.Config.RememberRefreshTTL,
	)

	// Revocation list and CSRF token store
	app.Revocations = revocation.New(app.Config.RevocationMaxSize)
	app.CSRFStore = csrf.New(app.Config.CSRFTokenTTL, app.Config.CSRFCleanupThreshold)

	// Metrics
	app.MetricsRecorder = metrics.Init(app.Config.MetricsEnabled)

	// Session cache (memory or Redis)
	app.SessionCache, err = initializeSessionCache(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up the gate and session services
func (app *Application) initializeBusinessLayer() error {
	app.GateService = services.NewGateService(
		app.Codec,
		app.Issuer,
		app.Revocations,
		app.SessionCache,
		app.Users,
		app.Config.UserLookupTimeout,
		app.Config.RotationThreshold,
		app.Config.SessionCacheTTL,
		app.MetricsRecorder,
	)

	app.SessionService = services.NewSessionService(
		app.Codec,
		app.Issuer,
		app.Revocations,
		app.SessionCache,
		app.Users,
		app.DB,
		app.Config.UserLookupTimeout,
		app.Config.SessionCacheTTL,
		app.MetricsRecorder,
	)

	log.Printf("[Bootstrap] User store: %s", app.Users.Name())
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	cookieWriter := cookies.NewWriter(app.Config.IsProduction)

	app.HandlerSet = initializeHandlers(
		app.SessionService,
		app.CSRFStore,
		cookieWriter,
		app.MetricsRecorder,
		app.DB,
		app.SessionCache,
	)

	app.Router = setupRouter(
		app.Config,
		app.HandlerSet,
		app.GateService,
		app.CSRFStore,
		cookieWriter,
		app.MetricsRecorder,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := newGracefulManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addSessionCacheShutdownJob(m, app.SessionCache)
	addStoreGaugeUpdateJob(m, app.Config, app.Revocations, app.CSRFStore, app.MetricsRecorder)

	<-m.Done()
}
