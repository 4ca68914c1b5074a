package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/config"
)

func runLimiter(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    handler := mw(func(c echo.Context) error {
        return c.String(http.StatusOK, "reached")
    })
    require.NoError(t, handler(c))
    return rec
}

func TestTokenBucketPassesThroughWithoutRedis(t *testing.T) {
    cfg := config.FixedLimit("rl:test", 5, time.Minute)
    rec := runLimiter(t, NewTokenBucket(cfg, nil))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"), "no headers when limiter is inert")
}

func TestTokenBucketPassesThroughWhenDisabled(t *testing.T) {
    cfg := config.FixedLimit("rl:test", 5, time.Minute)
    cfg.Enabled = false
    rec := runLimiter(t, NewTokenBucket(cfg, nil))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRateKeyUsesClientIP(t *testing.T) {
    cfg := config.FixedLimit("rl:login", 5, time.Minute)

    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
    req.RemoteAddr = "203.0.113.9:4711"
    c := e.NewContext(req, httptest.NewRecorder())

    key := buildRateKey(cfg, c)
    assert.Contains(t, key, "rl:login")
    assert.Contains(t, key, "203.0.113.9")
}

func TestFixedLimitShape(t *testing.T) {
    cfg := config.FixedLimit("rl:otp", 3, 5*time.Minute)

    assert.True(t, cfg.Enabled)
    assert.Equal(t, 3, cfg.Capacity)
    assert.Equal(t, "rl:otp", cfg.Prefix)
    assert.Equal(t, "ip", cfg.KeyStrategy)
    // The whole budget refills once per window: a drained bucket admits
    // nothing until the window elapses, so at most `capacity` requests
    // land inside any window.
    assert.Equal(t, 3, cfg.RefillTokens)
    assert.Equal(t, 5*time.Minute, cfg.RefillInterval)
    assert.Equal(t, 10*time.Minute, cfg.TTL)
}
