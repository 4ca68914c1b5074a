package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/utils"
)

const testSecret = "test-secret"

// stubLoader returns a fixed set of users keyed by ID.
type stubLoader struct {
    users map[uint64]model.User
}

func (s *stubLoader) GetByID(_ context.Context, id uint64) (model.User, error) {
    u, ok := s.users[id]
    if !ok {
        return model.User{}, errors.New("no such user")
    }
    return u, nil
}

func authedRequest(t *testing.T, userID uint64) *http.Request {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, userID, 15)
    require.NoError(t, err)
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+tok.Token)
    return req
}

func runJWT(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context) {
    t.Helper()
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    handler := mw(func(c echo.Context) error {
        return c.String(http.StatusOK, "reached")
    })
    require.NoError(t, handler(c))
    return rec, c
}

func TestJWTAuthAcceptsVerifiedUser(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{
        7: {ID: 7, Email: "ram@khwopa.edu.np", IsVerified: true},
    }}
    rec, c := runJWT(t, JWTAuth(testSecret, loader), authedRequest(t, 7))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, uint64(7), c.Get("user_id"))
    u, ok := c.Get("user").(model.User)
    require.True(t, ok)
    assert.Equal(t, "ram@khwopa.edu.np", u.Email)
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{}}
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec, _ := runJWT(t, JWTAuth(testSecret, loader), req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsBadToken(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{}}
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    rec, _ := runJWT(t, JWTAuth(testSecret, loader), req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsUnknownUser(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{}}
    rec, _ := runJWT(t, JWTAuth(testSecret, loader), authedRequest(t, 99))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsUnverifiedUser(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{
        7: {ID: 7, IsVerified: false},
    }}
    rec, _ := runJWT(t, JWTAuth(testSecret, loader), authedRequest(t, 7))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOptionalAuthPassesThroughAnonymous(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{}}
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec, c := runJWT(t, OptionalAuth(testSecret, loader), req)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Nil(t, c.Get("user_id"))
}

func TestOptionalAuthSetsUserWhenTokenValid(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{
        3: {ID: 3, IsVerified: true},
    }}
    rec, c := runJWT(t, OptionalAuth(testSecret, loader), authedRequest(t, 3))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, uint64(3), c.Get("user_id"))
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
    loader := &stubLoader{users: map[uint64]model.User{}}
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    rec, c := runJWT(t, OptionalAuth(testSecret, loader), req)

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Nil(t, c.Get("user_id"))
}
