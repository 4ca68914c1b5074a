package utils

import (
    "regexp"
    "strings"
    "time"
    "unicode"
)

var emailLocalRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+$`)

// ValidCollegeEmail reports whether the address is well formed and belongs
// to the allowed college domain (case-insensitive on the domain part).
func ValidCollegeEmail(email, domain string) bool {
    email = strings.TrimSpace(email)
    at := strings.LastIndex(email, "@")
    if at <= 0 || at == len(email)-1 {
        return false
    }
    local, dom := email[:at], email[at+1:]
    if !emailLocalRe.MatchString(local) {
        return false
    }
    return strings.EqualFold(dom, domain)
}

// ValidPassword enforces the signup password policy: at least 8 characters
// with at least one uppercase letter, one lowercase letter and one digit.
func ValidPassword(pw string) bool {
    if len(pw) < 8 {
        return false
    }
    var upper, lower, digit bool
    for _, r := range pw {
        switch {
        case unicode.IsUpper(r):
            upper = true
        case unicode.IsLower(r):
            lower = true
        case unicode.IsDigit(r):
            digit = true
        }
    }
    return upper && lower && digit
}

// ValidTaskDate reports whether s is a YYYY-MM-DD date that exists on the
// calendar. time.Parse rejects shapes like 2024-02-30 that a plain digit
// pattern would let through.
func ValidTaskDate(s string) bool {
    if len(s) != 10 {
        return false
    }
    _, err := time.Parse("2006-01-02", s)
    return err == nil
}
