package token

import (
	"time"
)

// Pair is a freshly minted access + refresh token couple.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer mints token pairs with the configured lifetimes. The remember
// flag stretches the refresh lifetime for long-lived browser sessions.
type Issuer struct {
	codec       *Codec
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rememberTTL time.Duration
}

func NewIssuer(codec *Codec, accessTTL, refreshTTL, rememberTTL time.Duration) *Issuer {
	return &Issuer{
		codec:       codec,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		rememberTTL: rememberTTL,
	}
}

// IssuePair mints an access/refresh pair for the subject. Both tokens
// carry their class tag so cross-class checks at decode time are
// meaningful.
func (i *Issuer) IssuePair(subject string, remember bool) (*Pair, error) {
	now := time.Now()

	access, err := i.codec.Encode(subject, ClassAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshTTL := i.RefreshTTL(remember)
	refresh, err := i.codec.Encode(subject, ClassRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(i.accessTTL),
		RefreshExpiresAt: now.Add(refreshTTL),
	}, nil
}

// IssueAccess mints a standalone access token, used by silent rotation.
func (i *Issuer) IssueAccess(subject string) (string, time.Time, error) {
	access, err := i.codec.Encode(subject, ClassAccess, i.accessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, time.Now().Add(i.accessTTL), nil
}

// AccessTTL returns the configured access lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// RefreshTTL returns the refresh lifetime the remember flag selects.
func (i *Issuer) RefreshTTL(remember bool) time.Duration {
	if remember {
		return i.rememberTTL
	}
	return i.refreshTTL
}
