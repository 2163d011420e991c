package models

import "time"

// Profile is the cached identity snapshot attached to authorized requests.
// A cache hit proves nothing beyond the snapshotted IsActive/Role values;
// callers that need guaranteed-fresh account state must go back to the
// user store.
type Profile struct {
	Subject  string    `json:"subject"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
	CachedAt time.Time `json:"cached_at"`
}
