package models

import (
	"time"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:'user'"` // "admin" or "user"
	IsActive     bool   `gorm:"not null;default:true"`

	// LockedUntil is set by failed-login throttling; a user is locked while
	// the timestamp lies in the future.
	LockedUntil *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked returns true while a lockout window is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// Snapshot captures the fields the gate attaches to authorized requests.
// The snapshot is what the session cache stores; it is never written back.
func (u *User) Snapshot() Profile {
	return Profile{
		Subject:  u.ID,
		Username: u.Username,
		Role:     u.Role,
		IsActive: u.IsActive,
		CachedAt: time.Now(),
	}
}
