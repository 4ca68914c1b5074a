package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("secret-1", 42, 15)
    require.NoError(t, err)
    assert.NotEmpty(t, tok.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

    uid, err := VerifyAccessToken("secret-1", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), uid)
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
    tok, err := NewAccessToken("secret-1", 42, 15)
    require.NoError(t, err)

    _, err = VerifyAccessToken("secret-2", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
    for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
        _, err := VerifyAccessToken("secret-1", raw)
        assert.Error(t, err, "raw=%q", raw)
    }
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
    // A zero TTL mints a token that is already past its exp claim.
    tok, err := NewAccessToken("secret-1", 7, 0)
    require.NoError(t, err)

    _, err = VerifyAccessToken("secret-1", tok.Token)
    assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
    a, err := NewRefreshToken(30)
    require.NoError(t, err)
    b, err := NewRefreshToken(30)
    require.NoError(t, err)

    assert.NotEmpty(t, a.Raw)
    assert.NotEqual(t, a.Raw, b.Raw, "raw tokens must be unique")
    assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), a.Exp, 5*time.Second)
}

func TestHashRefreshRaw(t *testing.T) {
    h1 := HashRefreshRaw("token-a")
    h2 := HashRefreshRaw("token-a")
    h3 := HashRefreshRaw("token-b")

    assert.Equal(t, h1, h2, "hashing is deterministic")
    assert.NotEqual(t, h1, h3)
    assert.Len(t, h1, 64, "hex-encoded SHA-256")
    assert.NotContains(t, h1, "token-a")
}
