package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour)

	token, err := maker.GenerateToken("admin", "admin", "550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", claims.UserUID)
}

func TestParseToken_WrongKey(t *testing.T) {
	maker := NewMaker("secret-a", time.Hour)
	other := NewMaker("secret-b", time.Hour)

	token, err := maker.GenerateToken("user1", "user", "uid")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	maker := NewMaker("secret", -time.Minute)

	token, err := maker.GenerateToken("user1", "user", "uid")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}
