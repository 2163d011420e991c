package bootstrap

import (
	"fmt"
	"log"

	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/store"
	"github.com/go-sessionguard/sessionguard/internal/userstore"
)

// initializeUserStore builds the identity backend. Local mode opens the
// database and returns it alongside the store so login and password
// changes can reach the credential table; http_api mode returns a nil
// database and identity lookups go to the upstream.
func initializeUserStore(cfg *config.Config) (userstore.UserStore, *store.Store, error) {
	switch cfg.UserStoreMode {
	case config.UserStoreModeLocal:
		db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Printf("[Bootstrap] Database initialized (driver: %s)", cfg.DatabaseDriver)
		return userstore.NewLocalUserStore(db), db, nil

	case config.UserStoreModeHTTPAPI:
		log.Printf("[Bootstrap] Upstream user API: %s (auth: %s)", cfg.UserAPIURL, cfg.UserAPIAuthMode)
		return userstore.NewHTTPAPIUserStore(cfg), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported user store mode %q", cfg.UserStoreMode)
	}
}
