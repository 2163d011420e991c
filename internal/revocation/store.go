// Package revocation keeps a bounded in-memory blacklist of token
// signatures. Membership is the sole query; entries live until natural
// token expiry makes them irrelevant or eviction drops them.
package revocation

import (
	"sync"
	"time"
)

// DefaultMaxSize is the default cardinality ceiling.
const DefaultMaxSize = 10000

type entry struct {
	signature  string
	insertedAt time.Time
}

// Store is a mutex-guarded revocation set. When the size exceeds the
// ceiling the oldest half of entries is dropped by insertion order: an
// approximation of LRU with O(1) amortized inserts, traded against
// possible false negatives for very old revocations under heavy churn.
type Store struct {
	mu      sync.RWMutex
	maxSize int
	members map[string]struct{}
	order   []entry
}

// New creates a store with the given ceiling; values below 2 fall back to
// DefaultMaxSize.
func New(maxSize int) *Store {
	if maxSize < 2 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		maxSize: maxSize,
		members: make(map[string]struct{}),
	}
}

// Revoke inserts a signature. Idempotent: re-revoking an already present
// signature neither grows the store nor refreshes its insertion position.
func (s *Store) Revoke(signature string) {
	if signature == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[signature]; exists {
		return
	}

	s.members[signature] = struct{}{}
	s.order = append(s.order, entry{signature: signature, insertedAt: time.Now()})

	if len(s.members) > s.maxSize {
		s.evictOldestHalfLocked()
	}
}

// IsRevoked reports membership.
func (s *Store) IsRevoked(signature string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, revoked := s.members[signature]
	return revoked
}

// Len returns the current cardinality, exported as a gauge.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.members)
}

// evictOldestHalfLocked removes the oldest maxSize/2 entries by insertion
// order. Caller holds the write lock.
func (s *Store) evictOldestHalfLocked() {
	drop := s.maxSize / 2
	if drop > len(s.order) {
		drop = len(s.order)
	}
	for _, e := range s.order[:drop] {
		delete(s.members, e.signature)
	}
	// Copy the tail so the backing array does not pin evicted entries.
	remaining := make([]entry, len(s.order)-drop)
	copy(remaining, s.order[drop:])
	s.order = remaining
}
