package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// The hash must never echo the plaintext.
	assert.NotContains(t, hash, "s3cret-pass")

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pass"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)

	// bcrypt salts every hash, so equal inputs still differ.
	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword(h1, "same-input"))
	assert.True(t, VerifyPassword(h2, "same-input"))
}
