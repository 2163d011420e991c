package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(
	tokenClass, grantType string,
	generationTime time.Duration,
) {
}

func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenRevoked(tokenClass, reason string)                {}
func (n *NoopMetrics) RecordTokenRotation(success bool)                            {}
func (n *NoopMetrics) RecordTokenRefresh(result string)                            {}

// Session Cache - noop implementations
func (n *NoopMetrics) RecordSessionCacheLookup(hit bool)      {}
func (n *NoopMetrics) RecordSessionInvalidated(reason string) {}

// CSRF - noop implementations
func (n *NoopMetrics) RecordCSRFIssued()                 {}
func (n *NoopMetrics) RecordCSRFValidation(success bool) {}

// Authentication - noop implementations
func (n *NoopMetrics) RecordLogin(userStore string, success bool)                {}
func (n *NoopMetrics) RecordLogout()                                             {}
func (n *NoopMetrics) RecordGateDecision(outcome string, duration time.Duration) {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetRevocationStoreSize(count int) {}
func (n *NoopMetrics) SetCSRFStoreSize(count int)       {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
