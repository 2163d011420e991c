package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"
	"github.com/go-sessionguard/sessionguard/internal/store"
	"github.com/go-sessionguard/sessionguard/internal/token"
	"github.com/go-sessionguard/sessionguard/internal/userstore"
)

// SessionService owns the session lifecycle: login, refresh, logout and
// credential changes. The credential store is nil when accounts live
// behind an upstream API; password operations are then rejected and login
// is handled by the upstream.
type SessionService struct {
	codec       *token.Codec
	issuer      *token.Issuer
	revocations *revocation.Store
	sessions    cache.Cache[models.Profile]
	users       userstore.UserStore
	store       *store.Store

	lookupTimeout time.Duration
	sessionTTL    time.Duration

	metrics core.Recorder
}

func NewSessionService(
	codec *token.Codec,
	issuer *token.Issuer,
	revocations *revocation.Store,
	sessions cache.Cache[models.Profile],
	users userstore.UserStore,
	credentialStore *store.Store,
	lookupTimeout time.Duration,
	sessionTTL time.Duration,
	m core.Recorder,
) *SessionService {
	return &SessionService{
		codec:         codec,
		issuer:        issuer,
		revocations:   revocations,
		sessions:      sessions,
		users:         users,
		store:         credentialStore,
		lookupTimeout: lookupTimeout,
		sessionTTL:    sessionTTL,
		metrics:       m,
	}
}

// Login verifies credentials and mints a fresh token pair. The login
// field takes a username or an email address; the remember flag
// stretches the refresh lifetime.
func (s *SessionService) Login(
	ctx context.Context,
	login, password string,
	remember bool,
) (*token.Pair, models.Profile, error) {
	if s.store == nil {
		log.Printf("[Session] Login rejected: no local credential store configured")
		s.metrics.RecordLogin(s.users.Name(), false)
		return nil, models.Profile{}, ErrInvalidCredentials
	}

	user, err := s.lookupCredentialUser(login)
	if err != nil {
		s.metrics.RecordLogin("local", false)
		return nil, models.Profile{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		s.metrics.RecordLogin("local", false)
		return nil, models.Profile{}, ErrInvalidCredentials
	}

	if user.IsLocked() {
		s.metrics.RecordLogin("local", false)
		return nil, models.Profile{}, ErrAccountLocked
	}
	if !user.IsActive {
		s.metrics.RecordLogin("local", false)
		return nil, models.Profile{}, ErrAccountDeactivated
	}

	start := time.Now()
	pair, err := s.issuer.IssuePair(user.ID, remember)
	if err != nil {
		s.metrics.RecordLogin("local", false)
		return nil, models.Profile{}, err
	}
	s.metrics.RecordTokenIssued("access", "login", time.Since(start))
	s.metrics.RecordTokenIssued("refresh", "login", time.Since(start))
	s.metrics.RecordLogin("local", true)

	profile := user.Snapshot()
	if err := s.sessions.Set(ctx, user.ID, profile, s.sessionTTL); err != nil {
		log.Printf("[Session] Cache write failed subject=%s: %v", user.ID, err)
	}

	return pair, profile, nil
}

// lookupCredentialUser resolves the login field against the credential
// table: username first, email when the field looks like an address.
func (s *SessionService) lookupCredentialUser(login string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(login)
	if errors.Is(err, store.ErrRecordNotFound) && strings.Contains(login, "@") {
		return s.store.GetUserByEmail(login)
	}
	return user, err
}

// Refresh exchanges a valid refresh token for a fresh pair. The presented
// refresh token is revoked on success, so each refresh token is good for
// exactly one exchange. The user store is consulted directly, never the
// cache: refresh is the point where deactivation must be noticed.
func (s *SessionService) Refresh(
	ctx context.Context,
	rawRefresh string,
	remember bool,
) (*token.Pair, models.Profile, error) {
	if rawRefresh == "" {
		s.metrics.RecordTokenRefresh("required")
		return nil, models.Profile{}, ErrRefreshTokenRequired
	}

	tok, err := s.codec.Decode(rawRefresh, token.ClassRefresh)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			s.metrics.RecordTokenRefresh("expired")
			return nil, models.Profile{}, ErrRefreshTokenExpired
		default:
			s.metrics.RecordTokenRefresh("invalid")
			return nil, models.Profile{}, ErrRefreshTokenInvalid
		}
	}

	if s.revocations.IsRevoked(tok.Signature) {
		s.metrics.RecordTokenRefresh("revoked")
		return nil, models.Profile{}, ErrRefreshTokenInvalid
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	user, err := s.users.FindByID(lookupCtx, tok.Subject)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrUserNotFound):
			s.metrics.RecordTokenRefresh("user_not_found")
			return nil, models.Profile{}, ErrUserNotFound
		case errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
			s.metrics.RecordTokenRefresh("timeout")
			return nil, models.Profile{}, ErrUpstreamTimeout
		default:
			log.Printf("[Session] Refresh lookup failed subject=%s: %v", tok.Subject, err)
			s.metrics.RecordTokenRefresh("upstream_error")
			return nil, models.Profile{}, ErrUpstreamUnavailable
		}
	}

	if !user.IsActive {
		s.metrics.RecordTokenRefresh("deactivated")
		return nil, models.Profile{}, ErrAccountDeactivated
	}
	if user.IsLocked() {
		s.metrics.RecordTokenRefresh("locked")
		return nil, models.Profile{}, ErrAccountLocked
	}

	start := time.Now()
	pair, err := s.issuer.IssuePair(user.ID, remember)
	if err != nil {
		s.metrics.RecordTokenRefresh("error")
		return nil, models.Profile{}, err
	}

	// One exchange per refresh token: the presented one dies here.
	s.revocations.Revoke(tok.Signature)
	s.metrics.RecordTokenRevoked("refresh", "refresh")
	s.metrics.RecordTokenIssued("access", "refresh_token", time.Since(start))
	s.metrics.RecordTokenIssued("refresh", "refresh_token", time.Since(start))
	s.metrics.RecordTokenRefresh("success")

	profile := user.Snapshot()
	if err := s.sessions.Set(ctx, user.ID, profile, s.sessionTTL); err != nil {
		log.Printf("[Session] Cache write failed subject=%s: %v", user.ID, err)
	}

	return pair, profile, nil
}

// Logout revokes both presented tokens and drops the cached session.
// Logout is best-effort and idempotent: expired or garbled tokens still
// get their signatures revoked, and nothing here returns an error to the
// user.
func (s *SessionService) Logout(ctx context.Context, rawAccess, rawRefresh string) {
	var subject string

	if rawAccess != "" {
		s.revocations.Revoke(token.Signature(rawAccess))
		s.metrics.RecordTokenRevoked("access", "logout")
		if tok, err := s.codec.Decode(rawAccess, token.ClassAccess); err == nil {
			subject = tok.Subject
		}
	}
	if rawRefresh != "" {
		s.revocations.Revoke(token.Signature(rawRefresh))
		s.metrics.RecordTokenRevoked("refresh", "logout")
		if subject == "" {
			if tok, err := s.codec.Decode(rawRefresh, token.ClassRefresh); err == nil {
				subject = tok.Subject
			}
		}
	}

	if subject != "" {
		if err := s.sessions.Delete(ctx, subject); err != nil {
			log.Printf("[Session] Cache invalidation failed subject=%s: %v", subject, err)
		} else {
			s.metrics.RecordSessionInvalidated("logout")
		}
	}

	s.metrics.RecordLogout()
}

// ChangePassword verifies the current password and replaces the hash. The
// cached session is invalidated so the next gate pass sees fresh state.
func (s *SessionService) ChangePassword(
	ctx context.Context,
	subject, currentPassword, newPassword string,
) error {
	if s.store == nil {
		return ErrInvalidCredentials
	}

	user, err := s.store.GetUserByID(subject)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(currentPassword),
	); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(subject, string(hash)); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, subject); err != nil {
		log.Printf("[Session] Cache invalidation failed subject=%s: %v", subject, err)
	} else {
		s.metrics.RecordSessionInvalidated("password_change")
	}

	return nil
}
