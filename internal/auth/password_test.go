package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(DefaultBcryptCost)

	hash, err := hasher.Hash("abc123")
	require.NoError(t, err)
	assert.NotEqual(t, "abc123", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)

	ok, err := hasher.Compare(hash, "abc123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Compare(hash, "abc124")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Compare("not-a-hash", "abc123")
	assert.Error(t, err)
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(bcrypt.MaxCost+1).Cost())
	assert.Equal(t, 8, NewPasswordHasher(8).Cost())
}
