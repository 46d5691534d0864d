package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 2, 7)

	tokenString, err := manager.GenerateToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := manager.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", 2, 7)
	other := NewJWTManager("other-secret", 2, 7)

	tokenString, err := manager.GenerateToken(42, "alice")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 2, 7)

	_, err := manager.VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestGenerateRandomString(t *testing.T) {
	first := GenerateRandomString(16)
	second := GenerateRandomString(16)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}
