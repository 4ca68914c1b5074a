package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
    hash, err := HashPassword("Sunshine1", bcrypt.MinCost)
    require.NoError(t, err)
    assert.NotEqual(t, "Sunshine1", hash)

    assert.True(t, VerifyPassword(hash, "Sunshine1"))
    assert.False(t, VerifyPassword(hash, "sunshine1"))
    assert.False(t, VerifyPassword(hash, ""))
    assert.False(t, VerifyPassword("not-a-bcrypt-hash", "Sunshine1"))
}

func TestHashPasswordSalts(t *testing.T) {
    h1, err := HashPassword("Sunshine1", bcrypt.MinCost)
    require.NoError(t, err)
    h2, err := HashPassword("Sunshine1", bcrypt.MinCost)
    require.NoError(t, err)
    assert.NotEqual(t, h1, h2, "bcrypt salts every hash")
}
