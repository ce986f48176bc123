package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	svc := NewService("test-secret-123", time.Hour)

	token, err := svc.GenerateToken(42, "Dana")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Dana", claims.FirstName)
	assert.Equal(t, "42", claims.Subject)
}

func TestService_RejectsForeignSecret(t *testing.T) {
	token, err := NewService("one", time.Hour).GenerateToken(1, "A")
	require.NoError(t, err)

	_, err = NewService("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RejectsExpired(t *testing.T) {
	svc := NewService("secret", -time.Minute)
	token, err := svc.GenerateToken(1, "A")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RejectsGarbage(t *testing.T) {
	_, err := NewService("secret", time.Hour).ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
