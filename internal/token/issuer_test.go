package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	return NewIssuer(newTestCodec(t), 15*time.Minute, 168*time.Hour, 720*time.Hour)
}

func TestIssuePairClassesAreTagged(t *testing.T) {
	issuer := newTestIssuer(t)
	codec := issuer.codec

	pair, err := issuer.IssuePair("user-42", false)
	require.NoError(t, err)

	access, err := codec.Decode(pair.AccessToken, ClassAccess)
	require.NoError(t, err)
	assert.Equal(t, ClassAccess, access.Class)
	assert.Equal(t, "user-42", access.Subject)

	refresh, err := codec.Decode(pair.RefreshToken, ClassRefresh)
	require.NoError(t, err)
	assert.Equal(t, ClassRefresh, refresh.Class)
	assert.Equal(t, "user-42", refresh.Subject)

	// Tokens are not interchangeable across class contexts.
	_, err = codec.Decode(pair.AccessToken, ClassRefresh)
	assert.ErrorIs(t, err, ErrTokenClassMismatch)
	_, err = codec.Decode(pair.RefreshToken, ClassAccess)
	assert.ErrorIs(t, err, ErrTokenClassMismatch)
}

func TestIssuePairLifetimes(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("user-42", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessExpiresAt, 2*time.Second)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), pair.RefreshExpiresAt, 2*time.Second)
}

func TestIssuePairRememberExtendsRefresh(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("user-42", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(720*time.Hour), pair.RefreshExpiresAt, 2*time.Second)

	assert.Equal(t, 720*time.Hour, issuer.RefreshTTL(true))
	assert.Equal(t, 168*time.Hour, issuer.RefreshTTL(false))
}

func TestIssueAccess(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, expiresAt, err := issuer.IssueAccess("user-42")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	tok, err := issuer.codec.Decode(raw, ClassAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-42", tok.Subject)
}
