package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateToken(t *testing.T) {
	plaintext, hash, err := GenerateToken(bcrypt.MinCost)
	require.NoError(t, err)

	assert.Len(t, plaintext, TokenBytes*2)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NoError(t, CheckToken(plaintext, hash))

	other, _, err := GenerateToken(bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other)
}

func TestHashToken(t *testing.T) {
	t.Run("rejects tokens over 72 bytes", func(t *testing.T) {
		_, err := HashToken(strings.Repeat("a", 73), bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrTokenTooLong)
	})

	t.Run("zero cost uses the default", func(t *testing.T) {
		hash, err := HashToken("secret-token", 0)
		require.NoError(t, err)

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, cost)
	})
}

func TestCheckToken(t *testing.T) {
	hash, err := HashToken("secret-token", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckToken("secret-token", hash))
	assert.ErrorIs(t, CheckToken("wrong-token", hash), ErrInvalidToken)

	err = CheckToken("secret-token", "not-a-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
