// Package core holds interfaces shared across service and infrastructure
// packages, keeping the dependency direction pointing inward.
package core

import "time"

// Recorder abstracts metrics recording for business logic
type Recorder interface {
	// Token Operations
	RecordTokenIssued(tokenClass, grantType string, generationTime time.Duration)
	RecordTokenValidation(result string, duration time.Duration)
	RecordTokenRevoked(tokenClass, reason string)
	RecordTokenRotation(success bool)
	RecordTokenRefresh(result string)

	// Session Cache
	RecordSessionCacheLookup(hit bool)
	RecordSessionInvalidated(reason string)

	// CSRF
	RecordCSRFIssued()
	RecordCSRFValidation(success bool)

	// Authentication
	RecordLogin(userStore string, success bool)
	RecordLogout()
	RecordGateDecision(outcome string, duration time.Duration)

	// Gauge Setters (for periodic updates)
	SetRevocationStoreSize(count int)
	SetCSRFStoreSize(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}
