package handler

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/config"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// newTestContext builds an Echo context carrying a JSON body and, when
// uid is non-zero, an authenticated user. The repositories behind the
// handlers under test hold a nil *sql.DB: the cases below must reject
// before any query runs, so touching the database is itself a failure.
func newTestContext(t *testing.T, method, target, body string, uid uint64) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    var reader *strings.Reader
    if body == "" {
        reader = strings.NewReader("{}")
    } else {
        reader = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, reader)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := echo.New().NewContext(req, rec)
    if uid != 0 {
        c.Set("user_id", uid)
    }
    return c, rec
}

func testAuthHandler() *AuthHandler {
    return NewAuthHandler(
        config.Config{EmailDomain: "khwopa.edu.np", OTPLength: 6, OTPTTLMin: 10},
        repository.NewUserRepo(nil),
        repository.NewOTPRepo(nil),
        repository.NewTokenRepo(nil),
        nil,
    )
}

func TestSignupRejectsMissingFields(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/auth/signup",
        `{"email":"ram@khwopa.edu.np"}`, 0)
    require.NoError(t, testAuthHandler().Signup(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupRejectsForeignDomain(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/auth/signup",
        `{"email":"ram@gmail.com","password":"Sunshine1","name":"Ram"}`, 0)
    require.NoError(t, testAuthHandler().Signup(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "khwopa.edu.np")
}

func TestSignupRejectsWeakPassword(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/auth/signup",
        `{"email":"ram@khwopa.edu.np","password":"weak","name":"Ram"}`, 0)
    require.NoError(t, testAuthHandler().Signup(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRequiresToken(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/auth/refresh", `{}`, 0)
    require.NoError(t, testAuthHandler().Refresh(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskCreateRejectsImpossibleDate(t *testing.T) {
    h := NewTaskHandler(repository.NewTaskRepo(nil))
    c, rec := newTestContext(t, http.MethodPost, "/api/tasks",
        `{"title":"study","date":"2024-02-30"}`, 1)
    require.NoError(t, h.Create(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskCreateRequiresTitle(t *testing.T) {
    h := NewTaskHandler(repository.NewTaskRepo(nil))
    c, rec := newTestContext(t, http.MethodPost, "/api/tasks",
        `{"title":"  ","date":"2026-08-29"}`, 1)
    require.NoError(t, h.Create(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskUpdateRejectsEmptyPatch(t *testing.T) {
    h := NewTaskHandler(repository.NewTaskRepo(nil))
    c, rec := newTestContext(t, http.MethodPut, "/api/tasks/3", `{}`, 1)
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Update(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatSendRejectsSelfMessage(t *testing.T) {
    h := NewChatHandler(repository.NewMessageRepo(nil), repository.NewUserRepo(nil), nil, nil)
    c, rec := newTestContext(t, http.MethodPost, "/api/chat/messages",
        `{"receiver_id":1,"content":"hi"}`, 1)
    require.NoError(t, h.Send(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatSendRejectsEmptyContent(t *testing.T) {
    h := NewChatHandler(repository.NewMessageRepo(nil), repository.NewUserRepo(nil), nil, nil)
    c, rec := newTestContext(t, http.MethodPost, "/api/chat/messages",
        `{"receiver_id":2,"content":"   "}`, 1)
    require.NoError(t, h.Send(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistoryRejectsBadCursor(t *testing.T) {
    h := NewChatHandler(repository.NewMessageRepo(nil), repository.NewUserRepo(nil), nil, nil)
    c, rec := newTestContext(t, http.MethodGet, "/api/chat/messages/2?before=yesterday", "", 1)
    c.SetParamNames("id")
    c.SetParamValues("2")
    require.NoError(t, h.History(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newMarketplaceHandler() *MarketplaceHandler {
    return NewMarketplaceHandler(
        repository.NewItemRepo(nil),
        repository.NewReviewRepo(nil),
        repository.NewConnectionRepo(nil),
        repository.NewUserRepo(nil),
        nil,
    )
}

func TestCreateItemRejectsUnknownCondition(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/marketplace/items",
        `{"title":"calc book","category":"books","price_cents":5000,"condition":"mint"}`, 1)
    require.NoError(t, newMarketplaceHandler().CreateItem(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateItemRejectsZeroPrice(t *testing.T) {
    c, rec := newTestContext(t, http.MethodPost, "/api/marketplace/items",
        `{"title":"calc book","category":"books","price_cents":0,"condition":"used"}`, 1)
    require.NoError(t, newMarketplaceHandler().CreateItem(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewItemRejectsOutOfRangeRating(t *testing.T) {
    for _, body := range []string{
        `{"rating":0,"comment":"bad"}`,
        `{"rating":6,"comment":"too good"}`,
    } {
        c, rec := newTestContext(t, http.MethodPost, "/api/marketplace/items/4/reviews", body, 1)
        c.SetParamNames("id")
        c.SetParamValues("4")
        require.NoError(t, newMarketplaceHandler().ReviewItem(c))
        assert.Equal(t, http.StatusBadRequest, rec.Code, "body=%s", body)
    }
}

func TestMentorRespondRejectsUnknownAction(t *testing.T) {
    h := NewMentorshipHandler(
        repository.NewConnectionRepo(nil),
        repository.NewUserRepo(nil),
        repository.NewReviewRepo(nil),
        nil,
    )
    c, rec := newTestContext(t, http.MethodPost, "/api/mentorship/requests/9/respond",
        `{"action":"maybe"}`, 1)
    c.SetParamNames("id")
    c.SetParamValues("9")
    require.NoError(t, h.Respond(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthenticatedContextIsRejected(t *testing.T) {
    h := NewTaskHandler(repository.NewTaskRepo(nil))
    c, rec := newTestContext(t, http.MethodGet, "/api/tasks", "", 0)
    require.NoError(t, h.List(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
