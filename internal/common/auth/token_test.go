package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 24*time.Hour)

	access, refresh, err := m.GenerateTokens(42, "vendor")
	require.NoError(t, err)

	claims, err := m.ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "vendor", claims.UserType)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	claims, err = m.ParseToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 24*time.Hour)
	other := NewManager("another-secret", time.Hour, 24*time.Hour)

	access, err := m.GenerateAccessToken(42, "customer")
	require.NoError(t, err)

	_, err = other.ParseToken(access)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, 24*time.Hour)

	access, err := m.GenerateAccessToken(42, "customer")
	require.NoError(t, err)

	_, err = m.ParseToken(access)
	assert.Error(t, err)
}
