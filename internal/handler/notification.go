package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// NotificationHandler serves the per-user notification feed.
type NotificationHandler struct {
    Notifications *repository.NotificationRepo
}

type notificationPart struct {
    ID        uint64          `json:"id"`
    Type      string          `json:"type"`
    Title     string          `json:"title"`
    Message   string          `json:"message"`
    Data      json.RawMessage `json:"data,omitempty"`
    IsRead    bool            `json:"is_read"`
    CreatedAt string          `json:"created_at"`
}

func toNotificationPart(n model.Notification) notificationPart {
    p := notificationPart{
        ID:        n.ID,
        Type:      n.Type,
        Title:     n.Title,
        Message:   n.Message,
        IsRead:    n.IsRead,
        CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
    }
    if n.Data != nil {
        // Stored as a JSON blob; pass it through untouched.
        p.Data = json.RawMessage(*n.Data)
    }
    return p
}

func NewNotificationHandler(repo *repository.NotificationRepo) *NotificationHandler {
    if repo == nil {
        panic("nil repository passed to NewNotificationHandler")
    }
    return &NotificationHandler{Notifications: repo}
}

// List returns the caller's notifications, newest first. ?unread=true
// filters to unread only, ?limit caps the page.
func (h *NotificationHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    unreadOnly := c.QueryParam("unread") == "true"
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    raw, err := h.Notifications.ListForUser(ctx, uid, unreadOnly, limit)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list notifications")
    }
    items := make([]notificationPart, len(raw))
    for i, n := range raw {
        items[i] = toNotificationPart(n)
    }
    return ok(c, http.StatusOK, echo.Map{"notifications": items, "count": len(items)})
}

// UnreadCount returns how many notifications the caller has not read.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Notifications.UnreadCount(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not count notifications")
    }
    return ok(c, http.StatusOK, echo.Map{"unread": n})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid notification id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Notifications.MarkRead(ctx, id, uid); err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "notification not found")
        }
        return fail(c, http.StatusInternalServerError, "could not mark read")
    }
    return okMsg(c, http.StatusOK, "marked read", nil)
}

// MarkAllRead flags every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Notifications.MarkAllRead(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not mark read")
    }
    return ok(c, http.StatusOK, echo.Map{"marked": n})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid notification id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Notifications.Delete(ctx, id, uid); err != nil {
        if err == repository.ErrNotFound {
            return fail(c, http.StatusNotFound, "notification not found")
        }
        return fail(c, http.StatusInternalServerError, "could not delete notification")
    }
    return okMsg(c, http.StatusOK, "notification deleted", nil)
}

// ClearRead deletes every already-read notification.
func (h *NotificationHandler) ClearRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Notifications.ClearRead(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not clear notifications")
    }
    return ok(c, http.StatusOK, echo.Map{"cleared": n})
}
