package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/models"
)

// initializeSessionCache builds the profile snapshot cache. Memory is the
// single-instance default; Redis is for deployments where several gates
// must agree on cached identities.
func initializeSessionCache(cfg *config.Config) (cache.Cache[models.Profile], error) {
	switch cfg.SessionCacheType {
	case config.SessionCacheTypeRedis:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CacheInitTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[models.Profile](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"session:",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis session cache: %w", err)
		}
		log.Printf("[Bootstrap] Session cache: redis (address: %s, db: %d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	case config.SessionCacheTypeMemory:
		fallthrough
	default:
		log.Printf("[Bootstrap] Session cache: memory (single instance only)")
		return cache.NewMemoryCache[models.Profile](), nil
	}
}
