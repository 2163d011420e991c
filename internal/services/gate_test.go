package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/metrics"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"
	"github.com/go-sessionguard/sessionguard/internal/token"
	"github.com/go-sessionguard/sessionguard/internal/userstore"
)

// fakeUserStore is an in-memory UserStore with controllable failures
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	calls int
	delay time.Duration
	err   error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	m := make(map[string]*models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserStore{users: m}
}

func (f *fakeUserStore) FindByID(ctx context.Context, subject string) (*models.User, error) {
	f.mu.Lock()
	f.calls++
	delay, storeErr := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, userstore.ErrUpstream
		case <-time.After(delay):
		}
	}
	if storeErr != nil {
		return nil, storeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[subject]
	if !ok {
		return nil, userstore.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) Name() string {
	return "fake"
}

func (f *fakeUserStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type gateFixture struct {
	gate        *GateService
	codec       *token.Codec
	issuer      *token.Issuer
	revocations *revocation.Store
	sessions    cache.Cache[models.Profile]
	users       *fakeUserStore
}

func newGateFixture(t *testing.T, accessTTL time.Duration, users *fakeUserStore) *gateFixture {
	t.Helper()

	codec, err := token.NewCodec([]byte("access-test-secret"), []byte("refresh-test-secret"), "test")
	require.NoError(t, err)

	issuer := token.NewIssuer(codec, accessTTL, time.Hour, 2*time.Hour)
	revocations := revocation.New(100)
	sessions := cache.NewMemoryCache[models.Profile]()
	t.Cleanup(func() { _ = sessions.Close() })

	gate := NewGateService(
		codec, issuer, revocations, sessions, users,
		100*time.Millisecond, token.DefaultRotationThreshold, time.Hour,
		metrics.NewNoopMetrics(),
	)
	return &gateFixture{
		gate:        gate,
		codec:       codec,
		issuer:      issuer,
		revocations: revocations,
		sessions:    sessions,
		users:       users,
	}
}

func activeUser(id string) *models.User {
	return &models.User{
		ID:       id,
		Username: "user-" + id,
		Role:     "user",
		IsActive: true,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore(activeUser("sub-1")))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	decision, err := f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", decision.Profile.Subject)
	assert.Equal(t, "sub-1", decision.Token.Subject)
	assert.Empty(t, decision.RotatedAccessToken, "fresh token should not rotate")
}

func TestAuthenticateMissingToken(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore())

	_, err := f.gate.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenRequired)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore(activeUser("sub-1")))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, 50*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthenticateMalformedToken(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore())

	_, err := f.gate.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticateRefreshTokenRejected(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore(activeUser("sub-1")))

	// A refresh token presented where an access token is required
	raw, err := f.codec.Encode("sub-1", token.ClassRefresh, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticateRevokedToken(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore(activeUser("sub-1")))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	f.revocations.Revoke(token.Signature(raw))

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthenticateUserNotFound(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore())

	raw, err := f.codec.Encode("ghost", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	user := activeUser("sub-1")
	user.IsActive = false
	f := newGateFixture(t, time.Hour, newFakeUserStore(user))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrAccountDeactivated)

	// An inactive snapshot must not linger in the cache
	_, err = f.sessions.Get(context.Background(), "sub-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestAuthenticateLockedAccount(t *testing.T) {
	user := activeUser("sub-1")
	until := time.Now().Add(time.Hour)
	user.LockedUntil = &until
	f := newGateFixture(t, time.Hour, newFakeUserStore(user))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticateUpstreamTimeout(t *testing.T) {
	users := newFakeUserStore(activeUser("sub-1"))
	users.delay = time.Second // beyond the fixture's 100ms lookup bound
	f := newGateFixture(t, time.Hour, users)

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestAuthenticateCacheHitSkipsUserStore(t *testing.T) {
	users := newFakeUserStore(activeUser("sub-1"))
	f := newGateFixture(t, time.Hour, users)

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, users.callCount())

	_, err = f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, users.callCount(), "second pass should hit the cache")
}

func TestAuthenticateRotatesPastMidlife(t *testing.T) {
	f := newGateFixture(t, time.Hour, newFakeUserStore(activeUser("sub-1")))

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, 200*time.Millisecond)
	require.NoError(t, err)

	// Past 50% of the 200ms lifetime
	time.Sleep(130 * time.Millisecond)

	decision, err := f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	require.NotEmpty(t, decision.RotatedAccessToken)
	assert.NotEqual(t, raw, decision.RotatedAccessToken)

	// The replacement must itself pass the gate
	rotated, err := f.gate.Authenticate(context.Background(), decision.RotatedAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", rotated.Profile.Subject)
}

func TestInvalidateSession(t *testing.T) {
	users := newFakeUserStore(activeUser("sub-1"))
	f := newGateFixture(t, time.Hour, users)

	raw, err := f.codec.Encode("sub-1", token.ClassAccess, time.Hour)
	require.NoError(t, err)

	_, err = f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)

	f.gate.InvalidateSession(context.Background(), "sub-1", "deactivation")

	_, err = f.gate.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, users.callCount(), "invalidation should force a fresh lookup")
}
