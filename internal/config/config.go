package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// User store mode constants
const (
	UserStoreModeLocal   = "local"
	UserStoreModeHTTPAPI = "http_api"
)

// Session cache backend constants
const (
	SessionCacheTypeMemory = "memory"
	SessionCacheTypeRedis  = "redis"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Placeholder secrets shipped in .env.example; fatal in production.
const (
	defaultAccessSecret  = "access-secret-change-in-production"
	defaultRefreshSecret = "refresh-secret-change-in-production"
	defaultSessionSecret = "session-secret-change-in-production"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Token signing settings. Access and refresh tokens are signed with
	// distinct secrets so a leaked access key cannot mint refresh tokens.
	AccessTokenSecret  string
	RefreshTokenSecret string
	Issuer             string

	// Token lifetimes
	AccessTokenTTL     time.Duration // default 15m
	RefreshTokenTTL    time.Duration // default 168h (7 days)
	RememberRefreshTTL time.Duration // default 720h (30 days), used with the remember flag

	// Fraction of lifetime after which a still-valid access token is
	// silently replaced
	RotationThreshold float64

	// Revocation store ceiling; exceeding it evicts the oldest half
	RevocationMaxSize int

	// Session cache
	SessionCacheType string        // "memory" or "redis"
	SessionCacheTTL  time.Duration // profile snapshot TTL, default 1h

	// CSRF store
	CSRFTokenTTL         time.Duration
	CSRFCleanupThreshold int

	// Browser session cookie
	SessionSecret string
	SessionMaxAge int // seconds

	// User store
	UserStoreMode string // "local" or "http_api"

	// Local user store (database)
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// HTTP API user store
	UserAPIURL                string
	UserAPIAuthMode           string // "none", "simple", or "hmac"
	UserAPIAuthHeader         string
	UserAPIAuthSecret         string
	UserAPIInsecureSkipVerify bool

	// Upstream lookup bound; the gate fails closed past this deadline
	UserLookupTimeout time.Duration

	// Redis (session cache / rate limiting)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Rate limiting
	EnableRateLimit  bool
	RateLimitStore   string
	LoginRateLimit   int // requests per minute
	RefreshRateLimit int
	RateLimitCleanup time.Duration

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateInterval time.Duration

	// Cache init
	CacheInitTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "sessionguard.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", defaultAccessSecret),
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", defaultRefreshSecret),
		Issuer:             getEnv("TOKEN_ISSUER", "sessionguard"),

		AccessTokenTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getEnvDuration("REFRESH_TOKEN_TTL", 168*time.Hour),
		RememberRefreshTTL: getEnvDuration("REMEMBER_REFRESH_TTL", 720*time.Hour),

		RotationThreshold: getEnvFloat("ROTATION_THRESHOLD", 0.5),

		RevocationMaxSize: getEnvInt("REVOCATION_MAX_SIZE", 10000),

		SessionCacheType: getEnv("SESSION_CACHE_TYPE", SessionCacheTypeMemory),
		SessionCacheTTL:  getEnvDuration("SESSION_CACHE_TTL", time.Hour),

		CSRFTokenTTL:         getEnvDuration("CSRF_TOKEN_TTL", time.Hour),
		CSRFCleanupThreshold: getEnvInt("CSRF_CLEANUP_THRESHOLD", 1000),

		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400),

		UserStoreMode: getEnv("USER_STORE_MODE", UserStoreModeLocal),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		UserAPIURL:                getEnv("USER_API_URL", ""),
		UserAPIAuthMode:           getEnv("USER_API_AUTH_MODE", "none"),
		UserAPIAuthHeader:         getEnv("USER_API_AUTH_HEADER", "X-API-Secret"),
		UserAPIAuthSecret:         getEnv("USER_API_AUTH_SECRET", ""),
		UserAPIInsecureSkipVerify: getEnvBool("USER_API_INSECURE_SKIP_VERIFY", false),

		UserLookupTimeout: getEnvDuration("USER_LOOKUP_TIMEOUT", 5*time.Second),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		EnableRateLimit:  getEnvBool("ENABLE_RATE_LIMIT", false),
		RateLimitStore:   getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 10),
		RefreshRateLimit: getEnvInt("REFRESH_RATE_LIMIT", 30),
		RateLimitCleanup: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 10*time.Minute),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 30*time.Second),

		CacheInitTimeout: getEnvDuration("CACHE_INIT_TIMEOUT", 10*time.Second),
	}
}

// Validate checks the configuration for fatal mistakes. A missing or
// placeholder signing secret in production is a startup error, never a
// per-request failure.
func (c *Config) Validate() error {
	var errs []string

	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		errs = append(errs, "ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, "ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.IsProduction {
		if c.AccessTokenSecret == defaultAccessSecret ||
			c.RefreshTokenSecret == defaultRefreshSecret {
			errs = append(errs, "placeholder token secrets are not allowed in production")
		}
		if c.SessionSecret == defaultSessionSecret {
			errs = append(errs, "placeholder SESSION_SECRET is not allowed in production")
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.RememberRefreshTTL <= 0 {
		errs = append(errs, "token TTLs must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, "REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.RotationThreshold <= 0 || c.RotationThreshold >= 1 {
		errs = append(errs, "ROTATION_THRESHOLD must be in (0, 1)")
	}
	if c.RevocationMaxSize < 2 {
		errs = append(errs, "REVOCATION_MAX_SIZE must be at least 2")
	}
	switch c.UserStoreMode {
	case UserStoreModeLocal:
		if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
			errs = append(errs, fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
		}
		if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
			errs = append(errs, "DATABASE_DSN is required for postgres")
		}
	case UserStoreModeHTTPAPI:
		if c.UserAPIURL == "" {
			errs = append(errs, "USER_API_URL is required when USER_STORE_MODE=http_api")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported USER_STORE_MODE %q", c.UserStoreMode))
	}
	switch c.SessionCacheType {
	case SessionCacheTypeMemory, SessionCacheTypeRedis:
	default:
		errs = append(errs, fmt.Sprintf("unsupported SESSION_CACHE_TYPE %q", c.SessionCacheType))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%g", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
