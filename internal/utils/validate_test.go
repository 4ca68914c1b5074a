package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestValidCollegeEmail(t *testing.T) {
    const domain = "khwopa.edu.np"

    assert.True(t, ValidCollegeEmail("ram@khwopa.edu.np", domain))
    assert.True(t, ValidCollegeEmail("sita.kc_01@KHWOPA.EDU.NP", domain), "domain match is case-insensitive")
    assert.True(t, ValidCollegeEmail("  padded@khwopa.edu.np  ", domain), "surrounding whitespace is trimmed")

    assert.False(t, ValidCollegeEmail("ram@gmail.com", domain))
    assert.False(t, ValidCollegeEmail("@khwopa.edu.np", domain))
    assert.False(t, ValidCollegeEmail("ram@", domain))
    assert.False(t, ValidCollegeEmail("no-at-sign", domain))
    assert.False(t, ValidCollegeEmail("bad space@khwopa.edu.np", domain))
    assert.False(t, ValidCollegeEmail("ram@sub.khwopa.edu.np", domain), "subdomains are not the college domain")
}

func TestValidPassword(t *testing.T) {
    assert.True(t, ValidPassword("Sunshine1"))
    assert.True(t, ValidPassword("aB3aB3aB3"))

    assert.False(t, ValidPassword("aB1x"), "too short")
    assert.False(t, ValidPassword("alllowercase1"), "missing uppercase")
    assert.False(t, ValidPassword("ALLUPPERCASE1"), "missing lowercase")
    assert.False(t, ValidPassword("NoDigitsHere"), "missing digit")
}

func TestValidTaskDate(t *testing.T) {
    assert.True(t, ValidTaskDate("2026-08-29"))
    assert.True(t, ValidTaskDate("2024-02-29"), "leap day in a leap year")

    assert.False(t, ValidTaskDate("2024-02-30"), "day does not exist")
    assert.False(t, ValidTaskDate("2025-02-29"), "leap day in a non-leap year")
    assert.False(t, ValidTaskDate("2026-13-01"), "month out of range")
    assert.False(t, ValidTaskDate("2026-8-29"), "month must be zero-padded")
    assert.False(t, ValidTaskDate("29-08-2026"))
    assert.False(t, ValidTaskDate(""))
    assert.False(t, ValidTaskDate("2026-08-29T00"))
}
