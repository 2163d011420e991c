package metrics

import "time"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenClass, grantType string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(tokenClass, grantType).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenValidation records a token validation outcome
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

// RecordTokenRevoked records a signature revocation
func (m *Metrics) RecordTokenRevoked(tokenClass, reason string) {
	m.TokensRevokedTotal.WithLabelValues(tokenClass, reason).Inc()
}

// RecordTokenRotation records a silent rotation attempt
func (m *Metrics) RecordTokenRotation(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokenRotationsTotal.WithLabelValues(result).Inc()
}

// RecordTokenRefresh records a refresh attempt by outcome
func (m *Metrics) RecordTokenRefresh(result string) {
	m.TokenRefreshTotal.WithLabelValues(result).Inc()
}

// RecordSessionCacheLookup records a session cache hit or miss
func (m *Metrics) RecordSessionCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	m.SessionCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordSessionInvalidated records a cached session invalidation
func (m *Metrics) RecordSessionInvalidated(reason string) {
	m.SessionsInvalidatedTotal.WithLabelValues(reason).Inc()
}

// RecordCSRFIssued records a CSRF token issuance
func (m *Metrics) RecordCSRFIssued() {
	m.CSRFTokensIssuedTotal.Inc()
}

// RecordCSRFValidation records a CSRF validation outcome
func (m *Metrics) RecordCSRFValidation(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.CSRFValidationTotal.WithLabelValues(result).Inc()
}

// RecordLogin records a login attempt
func (m *Metrics) RecordLogin(userStore string, success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(userStore, result).Inc()
}

// RecordLogout records a logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordGateDecision records a full gate decision by outcome
func (m *Metrics) RecordGateDecision(outcome string, duration time.Duration) {
	m.GateDecisionsTotal.WithLabelValues(outcome).Inc()
	m.GateDecisionDuration.Observe(duration.Seconds())
}

// SetRevocationStoreSize sets the revocation store gauge (for periodic updates)
func (m *Metrics) SetRevocationStoreSize(count int) {
	m.RevocationStoreSize.Set(float64(count))
}

// SetCSRFStoreSize sets the CSRF store gauge (for periodic updates)
func (m *Metrics) SetCSRFStoreSize(count int) {
	m.CSRFStoreSize.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
