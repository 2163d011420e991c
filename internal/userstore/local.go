package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/store"
)

// LocalUserStore resolves subjects against the local database
type LocalUserStore struct {
	store *store.Store
}

// NewLocalUserStore creates a database-backed user store
func NewLocalUserStore(s *store.Store) *LocalUserStore {
	return &LocalUserStore{store: s}
}

// FindByID looks up the account in the local database. The query runs on
// the caller's goroutine; SQLite and Postgres lookups are fast enough that
// the context is only checked up front.
func (l *LocalUserStore) FindByID(ctx context.Context, subject string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	user, err := l.store.GetUserByID(subject)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return user, nil
}

// Name returns store name for logging
func (l *LocalUserStore) Name() string {
	return "local"
}
