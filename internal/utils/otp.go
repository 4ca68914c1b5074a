package utils

import (
    "crypto/rand"
    "math/big"
)

// NewOTPCode returns a random numeric code of the given length as a string,
// preserving leading zeros. Codes are drawn from crypto/rand so they cannot
// be predicted from previous issuances. Lengths below 4 are clamped to 4.
func NewOTPCode(length int) (string, error) {
    if length < 4 {
        length = 4
    }
    digits := make([]byte, length)
    max := big.NewInt(10)
    for i := range digits {
        n, err := rand.Int(rand.Reader, max)
        if err != nil {
            return "", err
        }
        digits[i] = byte('0' + n.Int64())
    }
    return string(digits), nil
}
