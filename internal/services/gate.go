package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"
	"github.com/go-sessionguard/sessionguard/internal/token"
	"github.com/go-sessionguard/sessionguard/internal/userstore"
)

// Decision is the gate's verdict on a presented access token. When the
// rotation policy fired, RotatedAccessToken carries the replacement; it is
// empty when the presented token stays in force. Rotation failures never
// block the request, so an empty field after a due rotation is possible.
type Decision struct {
	Profile models.Profile
	Token   *token.Token

	RotatedAccessToken string
	RotatedExpiresAt   time.Time
}

// GateService runs the full authentication pipeline: decode, revocation
// check, identity resolution, account state check, silent rotation.
type GateService struct {
	codec       *token.Codec
	issuer      *token.Issuer
	revocations *revocation.Store
	sessions    cache.Cache[models.Profile]
	users       userstore.UserStore

	lookupTimeout     time.Duration
	rotationThreshold float64
	sessionTTL        time.Duration

	metrics core.Recorder
}

func NewGateService(
	codec *token.Codec,
	issuer *token.Issuer,
	revocations *revocation.Store,
	sessions cache.Cache[models.Profile],
	users userstore.UserStore,
	lookupTimeout time.Duration,
	rotationThreshold float64,
	sessionTTL time.Duration,
	m core.Recorder,
) *GateService {
	return &GateService{
		codec:             codec,
		issuer:            issuer,
		revocations:       revocations,
		sessions:          sessions,
		users:             users,
		lookupTimeout:     lookupTimeout,
		rotationThreshold: rotationThreshold,
		sessionTTL:        sessionTTL,
		metrics:           m,
	}
}

// Authenticate validates a raw access token end to end. Every rejection
// path returns one of the sentinel errors in errors.go; the zero-trust
// steps run in a fixed order so a revoked-but-expired token reports
// expiry, never revocation.
func (s *GateService) Authenticate(ctx context.Context, rawToken string) (*Decision, error) {
	start := time.Now()

	if rawToken == "" {
		s.metrics.RecordGateDecision("TOKEN_REQUIRED", time.Since(start))
		return nil, ErrTokenRequired
	}

	tok, err := s.codec.Decode(rawToken, token.ClassAccess)
	if err != nil {
		return nil, s.rejectDecode(err, start)
	}
	s.metrics.RecordTokenValidation("valid", time.Since(start))

	if s.revocations.IsRevoked(tok.Signature) {
		s.metrics.RecordGateDecision("TOKEN_REVOKED", time.Since(start))
		return nil, ErrTokenRevoked
	}

	profile, err := s.resolveProfile(ctx, tok.Subject)
	if err != nil {
		s.metrics.RecordGateDecision(outcomeFor(err), time.Since(start))
		return nil, err
	}

	if !profile.IsActive {
		s.metrics.RecordGateDecision("ACCOUNT_DEACTIVATED", time.Since(start))
		return nil, ErrAccountDeactivated
	}

	decision := &Decision{
		Profile: profile,
		Token:   tok,
	}

	if token.ShouldRotate(tok.IssuedAt, tok.ExpiresAt, time.Now(), s.rotationThreshold) {
		rotated, expiresAt, rotErr := s.issuer.IssueAccess(tok.Subject)
		if rotErr != nil {
			// A failed rotation must never fail an otherwise valid
			// request; the presented token stays in force.
			log.Printf("[Gate] Rotation failed subject=%s: %v", tok.Subject, rotErr)
			s.metrics.RecordTokenRotation(false)
		} else {
			decision.RotatedAccessToken = rotated
			decision.RotatedExpiresAt = expiresAt
			s.metrics.RecordTokenRotation(true)
			s.metrics.RecordTokenIssued("access", "rotation", time.Since(start))
		}
	}

	outcome := "allowed"
	if decision.RotatedAccessToken != "" {
		outcome = "rotated"
	}
	s.metrics.RecordGateDecision(outcome, time.Since(start))

	return decision, nil
}

// rejectDecode maps codec errors to gate rejections and records them
func (s *GateService) rejectDecode(err error, start time.Time) error {
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		s.metrics.RecordTokenValidation("expired", elapsed)
		s.metrics.RecordGateDecision("TOKEN_EXPIRED", elapsed)
		return ErrTokenExpired
	case errors.Is(err, token.ErrTokenMalformed):
		s.metrics.RecordTokenValidation("malformed", elapsed)
	case errors.Is(err, token.ErrTokenClassMismatch):
		s.metrics.RecordTokenValidation("class_mismatch", elapsed)
	default:
		s.metrics.RecordTokenValidation("signature", elapsed)
	}
	s.metrics.RecordGateDecision("TOKEN_INVALID", elapsed)
	return ErrTokenInvalid
}

// resolveProfile looks up the subject's identity, read-through: cache
// first, then the user store under a bounded deadline. An unreachable or
// slow user store fails closed.
func (s *GateService) resolveProfile(ctx context.Context, subject string) (models.Profile, error) {
	if profile, err := s.sessions.Get(ctx, subject); err == nil {
		s.metrics.RecordSessionCacheLookup(true)
		return profile, nil
	}
	s.metrics.RecordSessionCacheLookup(false)

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	user, err := s.users.FindByID(lookupCtx, subject)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrUserNotFound):
			return models.Profile{}, ErrUserNotFound
		case errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
			log.Printf("[Gate] User lookup timed out subject=%s store=%s", subject, s.users.Name())
			return models.Profile{}, ErrUpstreamTimeout
		default:
			log.Printf("[Gate] User lookup failed subject=%s store=%s: %v", subject, s.users.Name(), err)
			return models.Profile{}, ErrUpstreamUnavailable
		}
	}

	if user.IsLocked() {
		return models.Profile{}, ErrAccountLocked
	}

	profile := user.Snapshot()

	// Deactivated accounts are returned so the caller rejects them, but
	// never cached: a stale inactive snapshot would outlive reactivation.
	if profile.IsActive {
		if err := s.sessions.Set(ctx, subject, profile, s.sessionTTL); err != nil {
			log.Printf("[Gate] Session cache write failed subject=%s: %v", subject, err)
		}
	}

	return profile, nil
}

// InvalidateSession drops the cached snapshot for a subject so the next
// gate pass re-reads the user store.
func (s *GateService) InvalidateSession(ctx context.Context, subject, reason string) {
	if err := s.sessions.Delete(ctx, subject); err != nil {
		log.Printf("[Gate] Session invalidation failed subject=%s: %v", subject, err)
		return
	}
	s.metrics.RecordSessionInvalidated(reason)
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrUpstreamTimeout):
		return "UPSTREAM_TIMEOUT"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, ErrAccountLocked):
		return "ACCOUNT_LOCKED"
	default:
		return "error"
	}
}
