package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"

	"github.com/appleboy/graceful"
)

func newGracefulManager() *graceful.Manager {
	return graceful.NewManager()
}

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addSessionCacheShutdownJob closes the session cache backend
func addSessionCacheShutdownJob(m *graceful.Manager, sessionCache cache.Cache[models.Profile]) {
	m.AddShutdownJob(func() error {
		log.Println("Closing session cache...")
		if err := sessionCache.Close(); err != nil {
			log.Printf("Error closing session cache: %v", err)
			return err
		}
		log.Println("Session cache closed")
		return nil
	})
}

// addStoreGaugeUpdateJob adds a periodic job publishing the sizes of the
// in-memory revocation and CSRF stores as gauges
func addStoreGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	revocations *revocation.Store,
	csrfStore *csrf.Store,
	recorder core.Recorder,
) {
	if !cfg.MetricsEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		update := func() {
			recorder.SetRevocationStoreSize(revocations.Len())
			recorder.SetCSRFStoreSize(csrfStore.Len())
		}

		// Update immediately on startup
		update()

		for {
			select {
			case <-ticker.C:
				update()
			case <-ctx.Done():
				return nil
			}
		}
	})
}
