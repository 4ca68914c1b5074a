package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewOTPCode(t *testing.T) {
    code, err := NewOTPCode(6)
    require.NoError(t, err)
    assert.Len(t, code, 6)
    for _, r := range code {
        assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit %q", code, r)
    }
}

func TestNewOTPCodeClampsShortLengths(t *testing.T) {
    code, err := NewOTPCode(1)
    require.NoError(t, err)
    assert.Len(t, code, 4)

    code, err = NewOTPCode(0)
    require.NoError(t, err)
    assert.Len(t, code, 4)
}

func TestNewOTPCodeVaries(t *testing.T) {
    seen := map[string]bool{}
    for i := 0; i < 20; i++ {
        code, err := NewOTPCode(8)
        require.NoError(t, err)
        seen[code] = true
    }
    // 20 draws from 10^8 colliding down to one value would mean the
    // generator is broken.
    assert.Greater(t, len(seen), 1)
}
