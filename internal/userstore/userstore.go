// Package userstore resolves token subjects to user accounts. The gate is
// agnostic to where accounts live: a local database or an upstream HTTP API.
package userstore

import (
	"context"
	"errors"

	"github.com/go-sessionguard/sessionguard/internal/models"
)

var (
	// ErrUserNotFound is returned when the subject maps to no account
	ErrUserNotFound = errors.New("user not found")

	// ErrUpstream is returned when the backing store could not answer
	ErrUpstream = errors.New("user store unavailable")
)

// UserStore looks up accounts by token subject. Implementations must honor
// context cancellation; the gate bounds every lookup with a deadline.
type UserStore interface {
	// FindByID returns the account for a subject, ErrUserNotFound if the
	// subject maps to nothing, or an ErrUpstream-wrapped error otherwise.
	FindByID(ctx context.Context, subject string) (*models.User, error)

	// Name returns the store name for logging
	Name() string
}
