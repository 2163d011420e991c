package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-sessionguard/sessionguard/internal/core"
)

// Recorder is re-exported for convenience
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokenRotationsTotal     *prometheus.CounterVec
	TokenRefreshTotal       *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration prometheus.Histogram
	TokenValidationDuration prometheus.Histogram

	// Session Metrics
	SessionCacheLookupsTotal *prometheus.CounterVec
	SessionsInvalidatedTotal *prometheus.CounterVec

	// CSRF Metrics
	CSRFTokensIssuedTotal prometheus.Counter
	CSRFValidationTotal   *prometheus.CounterVec

	// Authentication Metrics
	AuthLoginTotal       *prometheus.CounterVec
	AuthLogoutTotal      prometheus.Counter
	GateDecisionsTotal   *prometheus.CounterVec
	GateDecisionDuration prometheus.Histogram

	// Store Gauges
	RevocationStoreSize prometheus.Gauge
	CSRFStoreSize       prometheus.Gauge

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Token Metrics
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{
				"token_class",
				"grant_type",
			}, // token_class: access, refresh; grant_type: login, refresh_token, rotation
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_revoked_total",
				Help: "Total number of token signatures revoked",
			},
			[]string{"token_class", "reason"}, // reason: logout, refresh, security
		),
		TokenRotationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_rotations_total",
				Help: "Total number of silent access token rotations",
			},
			[]string{"result"}, // success, error
		),
		TokenRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_refresh_total",
				Help: "Total number of refresh attempts",
			},
			[]string{"result"}, // success, expired, invalid, revoked, user_not_found, deactivated
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"result"}, // valid, malformed, signature, expired, class_mismatch, revoked
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "token_generation_duration_seconds",
				Help:    "Time taken to generate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "token_validation_duration_seconds",
				Help:    "Time taken to validate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Session Metrics
		SessionCacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_cache_lookups_total",
				Help: "Total number of session cache lookups",
			},
			[]string{"result"}, // hit, miss
		),
		SessionsInvalidatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_invalidated_total",
				Help: "Total number of cached sessions invalidated",
			},
			[]string{"reason"}, // logout, deactivation, password_change
		),

		// CSRF Metrics
		CSRFTokensIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "csrf_tokens_issued_total",
				Help: "Total number of CSRF tokens issued",
			},
		),
		CSRFValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrf_validation_total",
				Help: "Total number of CSRF token validations",
			},
			[]string{"result"}, // success, failure
		),

		// Authentication Metrics
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"user_store", "result"}, // user_store: local, http_api
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		GateDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_gate_decisions_total",
				Help: "Total number of authentication gate decisions",
			},
			[]string{"outcome"}, // allowed, rotated, or a rejection code
		),
		GateDecisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_gate_decision_duration_seconds",
				Help:    "Time taken for a full gate decision",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Store Gauges
		RevocationStoreSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "revocation_store_size",
				Help: "Current number of revoked token signatures held in memory",
			},
		),
		CSRFStoreSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "csrf_store_size",
				Help: "Current number of outstanding CSRF tokens",
			},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}

	return m
}
