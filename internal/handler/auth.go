package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/config"
    "github.com/koshhq/kosh-backend/internal/mailer"
    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/queue"
    "github.com/koshhq/kosh-backend/internal/repository"
    queue_publisher "github.com/koshhq/kosh-backend/internal/service"
    "github.com/koshhq/kosh-backend/internal/utils"
)

// AuthHandler bundles dependencies for signup, OTP verification and
// session endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    OTPs   *repository.OTPRepo
    Tokens *repository.TokenRepo
    Mail   *mailer.Mailer
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, o *repository.OTPRepo, t *repository.TokenRepo, m *mailer.Mailer) *AuthHandler {
    if u == nil || o == nil || t == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Cfg: cfg, Users: u, OTPs: o, Tokens: t, Mail: m}
}

// ----- DTOs -----

type signupReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Name     string `json:"name"`
}
type verifyReq struct {
    Email string `json:"email"`
    OTP   string `json:"otp"`
}
type emailReq struct {
    Email string `json:"email"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}
type updateProfileReq struct {
    Name       *string `json:"name"`
    Department *string `json:"department"`
    AvatarURL  *string `json:"avatar_url"`
    CoverURL   *string `json:"cover_url"`
}

type userPart struct {
    ID         uint64  `json:"id"`
    Email      string  `json:"email"`
    Name       string  `json:"name"`
    Department *string `json:"department,omitempty"`
    AvatarURL  *string `json:"avatar_url,omitempty"`
    CoverURL   *string `json:"cover_url,omitempty"`
    IsVerified bool    `json:"is_verified"`
}

func toUserPart(u model.User) userPart {
    return userPart{
        ID:         u.ID,
        Email:      u.Email,
        Name:       u.Name,
        Department: u.Department,
        AvatarURL:  u.AvatarURL,
        CoverURL:   u.CoverURL,
        IsVerified: u.IsVerified,
    }
}

type tokenPair struct {
    AccessToken   string    `json:"access_token"`
    AccessExpires time.Time `json:"access_expires"`
    RefreshToken  string    `json:"refresh_token"`
}

// Signup validates the college email and password policy, claims the
// address, and mails a verification OTP. The account is created
// unverified; if the OTP mail cannot be dispatched the account is deleted
// again so the address is not left in limbo.
func (h *AuthHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Name = strings.TrimSpace(req.Name)
    if req.Email == "" || req.Password == "" || req.Name == "" {
        return fail(c, http.StatusBadRequest, "email, password and name are required")
    }
    if !utils.ValidCollegeEmail(req.Email, h.Cfg.EmailDomain) {
        return fail(c, http.StatusBadRequest, "email must belong to "+h.Cfg.EmailDomain)
    }
    if !utils.ValidPassword(req.Password) {
        return fail(c, http.StatusBadRequest, "password must be at least 8 characters with upper, lower and digit")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if existing, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
        if existing.IsVerified {
            return fail(c, http.StatusConflict, "email already registered")
        }
        // A stale unverified signup holds the address; sweep it so the
        // fresh attempt starts clean.
        if _, err := h.Users.DeleteUnverifiedByEmail(ctx, req.Email); err != nil {
            return fail(c, http.StatusInternalServerError, "signup failed")
        }
    } else if err != sql.ErrNoRows {
        return fail(c, http.StatusInternalServerError, "signup failed")
    }

    uid, err := h.Users.Create(ctx, req.Email, req.Password, req.Name, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return fail(c, http.StatusConflict, "email already registered")
        }
        return fail(c, http.StatusInternalServerError, "signup failed")
    }

    code, err := utils.NewOTPCode(h.Cfg.OTPLength)
    if err != nil {
        _ = h.Users.Delete(ctx, uid)
        return fail(c, http.StatusInternalServerError, "signup failed")
    }
    if err := h.OTPs.Create(ctx, uid, code, time.Duration(h.Cfg.OTPTTLMin)*time.Minute); err != nil {
        _ = h.Users.Delete(ctx, uid)
        return fail(c, http.StatusInternalServerError, "signup failed")
    }

    // OTP mail is synchronous on purpose: an account nobody can verify is
    // worse than a failed signup, so a dispatch error rolls the user back.
    if err := h.Mail.Send(req.Email, "Verify your KOSH account", mailer.OTPBody(req.Name, code, h.Cfg.OTPTTLMin)); err != nil {
        _ = h.Users.Delete(ctx, uid)
        return fail(c, http.StatusInternalServerError, "could not send verification email")
    }

    return okMsg(c, http.StatusCreated, "verification code sent", echo.Map{"user_id": uid})
}

// VerifyOTP consumes a valid code, marks the account verified and opens a
// session. Consumption and verification flip in one transaction so a code
// can never be spent without the account activating.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
    var req verifyReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.OTP = strings.TrimSpace(req.OTP)
    if req.Email == "" || req.OTP == "" {
        return fail(c, http.StatusBadRequest, "email and otp are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        // Same message as a bad code; do not reveal which emails exist.
        return fail(c, http.StatusBadRequest, "invalid or expired code")
    }
    if u.IsVerified {
        return fail(c, http.StatusBadRequest, "account already verified")
    }

    otp, err := h.OTPs.FindActive(ctx, u.ID, req.OTP)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid or expired code")
    }

    tx, err := h.Users.DB.BeginTx(ctx, nil)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "verification failed")
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := h.OTPs.ConsumeTx(ctx, tx, otp.ID); err != nil {
        return fail(c, http.StatusBadRequest, "invalid or expired code")
    }
    if err := h.Users.MarkVerifiedTx(ctx, tx, u.ID); err != nil {
        return fail(c, http.StatusInternalServerError, "verification failed")
    }
    if err := tx.Commit(); err != nil {
        return fail(c, http.StatusInternalServerError, "verification failed")
    }
    committed = true
    u.IsVerified = true

    pair, err := h.issueTokens(ctx, u.ID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "verification succeeded but session could not be opened")
    }

    // Welcome mail is best-effort and goes through the broker; a broker
    // outage must not fail verification.
    _ = queue_publisher.PublishOutboundEmail(ctx, queue.OutboundEmailEvent{
        To:      u.Email,
        Subject: "Welcome to KOSH",
        Body:    mailer.WelcomeBody(u.Name),
    })

    return ok(c, http.StatusOK, echo.Map{"user": toUserPart(u), "tokens": pair})
}

// ResendOTP issues a fresh code for an unverified account.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return fail(c, http.StatusBadRequest, "email is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        return fail(c, http.StatusNotFound, "no pending signup for this email")
    }
    if u.IsVerified {
        return fail(c, http.StatusBadRequest, "account already verified")
    }

    code, err := utils.NewOTPCode(h.Cfg.OTPLength)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not issue code")
    }
    if err := h.OTPs.Create(ctx, u.ID, code, time.Duration(h.Cfg.OTPTTLMin)*time.Minute); err != nil {
        return fail(c, http.StatusInternalServerError, "could not issue code")
    }
    if err := h.Mail.Send(u.Email, "Verify your KOSH account", mailer.OTPBody(u.Name, code, h.Cfg.OTPTTLMin)); err != nil {
        return fail(c, http.StatusInternalServerError, "could not send verification email")
    }
    return okMsg(c, http.StatusOK, "verification code sent", nil)
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "email and password are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return fail(c, http.StatusUnauthorized, "invalid credentials")
        }
        return fail(c, http.StatusInternalServerError, "login failed")
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "invalid credentials")
    }
    if !u.IsVerified {
        return fail(c, http.StatusForbidden, "account not verified")
    }

    pair, err := h.issueTokens(ctx, u.ID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "login failed")
    }
    return ok(c, http.StatusOK, echo.Map{"user": toUserPart(u), "tokens": pair})
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token is not rotated; an expired or unknown one yields 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token is required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "invalid refresh token")
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, h.Cfg.AccessTTLMin)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "refresh failed")
    }
    return ok(c, http.StatusOK, echo.Map{
        "access_token":   access.Token,
        "access_expires": access.Exp,
    })
}

// Logout deletes the presented refresh token. Best-effort: an unknown
// token still answers 200, since the session it named is gone either way.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token is required")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    _ = h.Tokens.DeleteByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
    return okMsg(c, http.StatusOK, "logged out", nil)
}

// LogoutAll deletes every refresh token the caller holds, ending all of
// their sessions. Requires a valid access token.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Tokens.DeleteAllForUser(ctx, uid); err != nil {
        return fail(c, http.StatusInternalServerError, "logout failed")
    }
    return okMsg(c, http.StatusOK, "logged out everywhere", nil)
}

// Profile returns the authenticated user's record.
func (h *AuthHandler) Profile(c echo.Context) error {
    u, okType := c.Get("user").(model.User)
    if !okType {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    return ok(c, http.StatusOK, toUserPart(u))
}

// UpdateProfile sets the mutable profile fields and returns the result.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req updateProfileReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
        return fail(c, http.StatusBadRequest, "name cannot be empty")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.UpdateProfile(ctx, uid, req.Name, req.Department, req.AvatarURL, req.CoverURL); err != nil {
        return fail(c, http.StatusInternalServerError, "update failed")
    }
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "update failed")
    }
    return ok(c, http.StatusOK, toUserPart(u))
}

// issueTokens mints an access token and persists a refresh token.
func (h *AuthHandler) issueTokens(ctx context.Context, userID uint64) (tokenPair, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, h.Cfg.AccessTTLMin)
    if err != nil {
        return tokenPair{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return tokenPair{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return tokenPair{}, err
    }
    return tokenPair{
        AccessToken:   access.Token,
        AccessExpires: access.Exp,
        RefreshToken:  refresh.Raw, // raw back to client; only the hash is stored
    }, nil
}
