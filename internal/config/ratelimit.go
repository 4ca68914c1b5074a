package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig describes one token-bucket limiter. The general API
// limiter is loaded from env; the auth-specific limiters (login, OTP)
// are built with FixedLimit so their budgets stay in code next to the
// routes they protect.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig builds the general API limiter from environment
// variables. Defaults approximate 100 requests per 15 minutes per client IP.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 100),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 9*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 30*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:api"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if def.Capacity < 1 {
        def.Capacity = 1
    }
    if def.RefillTokens < 1 {
        def.RefillTokens = 1
    }
    if def.RefillInterval <= 0 {
        def.RefillInterval = time.Second
    }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL {
        def.TTL = minTTL
    }
    return def
}

// FixedLimit returns a limiter allowing `capacity` requests per `window`,
// keyed by client IP. The whole budget refills once per window, so a
// client that burns its tokens waits out the full window rather than
// trickling back in early. Used for the login (5/15min) and OTP issuance
// (3/5min) budgets.
func FixedLimit(prefix string, capacity int, window time.Duration) RateLimitConfig {
    if capacity < 1 {
        capacity = 1
    }
    if window <= 0 {
        window = time.Minute
    }
    return RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   capacity,
        RefillInterval: window,
        TTL:            2 * window,
        KeyStrategy:    "ip",
        Prefix:         prefix,
    }
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
