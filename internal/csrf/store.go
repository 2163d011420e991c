// Package csrf implements one-time anti-forgery tokens bound to a browser
// session. Bearer-token requests never consult this store; the tokens only
// defend cookie-backed sessions, which browsers send cross-site.
package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is the validity window of an issued token regardless of use.
const DefaultTTL = time.Hour

// DefaultCleanupThreshold is the store size past which an Issue triggers
// background cleanup of expired entries.
const DefaultCleanupThreshold = 1000

type entry struct {
	sessionID string
	expiresAt time.Time
}

// Store is a mutex-guarded one-time token store. Validation consumes the
// entry: once a token has been looked up it is gone, whatever the outcome,
// so a replay or a partially failed request cannot resurrect it.
type Store struct {
	mu               sync.Mutex
	ttl              time.Duration
	cleanupThreshold int
	entries          map[string]entry
	cleaning         atomic.Bool
}

func New(ttl time.Duration, cleanupThreshold int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupThreshold <= 0 {
		cleanupThreshold = DefaultCleanupThreshold
	}
	return &Store{
		ttl:              ttl,
		cleanupThreshold: cleanupThreshold,
		entries:          make(map[string]entry),
	}
}

// Issue creates a token bound to the session. Crossing the cleanup
// threshold kicks off background expiry sweeping; the sweep never blocks
// the issuing request.
func (s *Store) Issue(sessionID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: token generation failed: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	s.entries[token] = entry{
		sessionID: sessionID,
		expiresAt: time.Now().Add(s.ttl),
	}
	needsCleanup := len(s.entries) > s.cleanupThreshold
	s.mu.Unlock()

	if needsCleanup && s.cleaning.CompareAndSwap(false, true) {
		go func() {
			defer s.cleaning.Store(false)
			s.removeExpired()
		}()
	}

	return token, nil
}

// Validate checks existence, expiry and session binding. The entry is
// deleted as soon as it is found, before any check runs, so the same token
// can never validate twice.
func (s *Store) Validate(token, sessionID string) bool {
	if token == "" || sessionID == "" {
		return false
	}

	s.mu.Lock()
	e, exists := s.entries[token]
	if exists {
		delete(s.entries, token)
	}
	s.mu.Unlock()

	if !exists {
		return false
	}
	if time.Now().After(e.expiresAt) {
		return false
	}
	return e.sessionID == sessionID
}

// Len returns the current number of stored tokens, exported as a gauge.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Store) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}
