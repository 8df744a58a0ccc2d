package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "pawfam", time.Hour)
	token, err := tm.GenerateToken("user-1", "vendor")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "vendor", claims.Role)
}

func TestTokenDefaultsToSevenDays(t *testing.T) {
	tm := NewTokenManager("secret", "", 0)
	assert.Equal(t, 7*24*time.Hour, tm.TTL())
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", "pawfam", time.Minute)
	token, err := tm.GenerateToken("user-1", "customer")
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := NewTokenManager("one", "pawfam", time.Hour).GenerateToken("user-1", "customer")
	require.NoError(t, err)

	_, err = NewTokenManager("two", "pawfam", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken(t *testing.T) {
	tok, err := ExtractToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, err := ExtractToken(h)
		assert.Error(t, err, h)
	}
}
