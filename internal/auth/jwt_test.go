package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := tm.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	start := time.Now()

	token, err := tm.GenerateToken(uuid.New())
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := tm.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
