package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/presence"
    "github.com/koshhq/kosh-backend/internal/repository"
    "github.com/koshhq/kosh-backend/internal/ws"
)

// maxMessageLen caps a single chat message body.
const maxMessageLen = 4000

// ChatHandler is the REST side of direct messaging. The socket gateway
// covers live delivery; these endpoints cover history, conversations and
// sends from clients without an open socket.
type ChatHandler struct {
    Messages *repository.MessageRepo
    Users    *repository.UserRepo
    Hub      *ws.Hub
    Presence *presence.Store
}

func NewChatHandler(msgs *repository.MessageRepo, users *repository.UserRepo, hub *ws.Hub, pres *presence.Store) *ChatHandler {
    if msgs == nil || users == nil {
        panic("nil repository passed to NewChatHandler")
    }
    return &ChatHandler{Messages: msgs, Users: users, Hub: hub, Presence: pres}
}

type sendMessageReq struct {
    ReceiverID uint64 `json:"receiver_id"`
    Content    string `json:"content"`
}

// Send persists a message and, when the receiver holds a live socket on
// this instance, pushes it immediately.
func (h *ChatHandler) Send(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req sendMessageReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Content = strings.TrimSpace(req.Content)
    if req.ReceiverID == 0 || req.Content == "" {
        return fail(c, http.StatusBadRequest, "receiver_id and content are required")
    }
    if req.ReceiverID == uid {
        return fail(c, http.StatusBadRequest, "cannot message yourself")
    }
    if len(req.Content) > maxMessageLen {
        return fail(c, http.StatusBadRequest, "message too long")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Users.GetByID(ctx, req.ReceiverID); err != nil {
        return fail(c, http.StatusNotFound, "receiver not found")
    }
    msg, err := h.Messages.Create(ctx, uid, req.ReceiverID, req.Content)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not send message")
    }
    if h.Hub != nil {
        h.Hub.SendToUser(req.ReceiverID, ws.MessageFrame(ws.EvMessageReceive, msg))
    }
    return okMsg(c, http.StatusCreated, "message sent", ws.ToMessagePayload(msg))
}

// History returns the conversation with one counterpart, oldest first.
// Fetching a page marks the counterpart's messages to the caller as read.
// Pagination walks backwards with ?before=<RFC3339>&limit=<n>.
func (h *ChatHandler) History(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    otherID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid user id")
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    var before *time.Time
    if v := c.QueryParam("before"); v != "" {
        t, err := time.Parse(time.RFC3339, v)
        if err != nil {
            return fail(c, http.StatusBadRequest, "before must be RFC3339")
        }
        before = &t
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    raw, err := h.Messages.ListBetween(ctx, uid, otherID, limit, before)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not load messages")
    }
    // Repository returns newest first for the cursor; clients want
    // chronological order.
    msgs := make([]ws.MessagePayload, len(raw))
    for i, m := range raw {
        msgs[len(raw)-1-i] = ws.ToMessagePayload(m)
    }

    // Opening a page counts as reading it. Only first pages (no cursor)
    // flip the flag, so scrolling history does not re-read.
    if before == nil {
        if _, err := h.Messages.MarkReadFrom(ctx, otherID, uid); err == nil && h.Hub != nil {
            h.Hub.SendToUser(otherID, readAckFrame(uid))
        }
    }
    return ok(c, http.StatusOK, echo.Map{"messages": msgs, "count": len(msgs)})
}

// Conversations lists the caller's chat threads, one row per counterpart,
// newest activity first, with unread counts.
func (h *ChatHandler) Conversations(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    convs, err := h.Messages.ListConversations(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not load conversations")
    }
    if h.Presence != nil {
        for i := range convs {
            convs[i].Online = h.Presence.IsOnline(ctx, convs[i].UserID)
        }
    }
    return ok(c, http.StatusOK, echo.Map{"conversations": convs, "count": len(convs)})
}

// UnreadCount returns the caller's total unread message count.
func (h *ChatHandler) UnreadCount(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Messages.UnreadTotal(ctx, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not count unread")
    }
    return ok(c, http.StatusOK, echo.Map{"unread": n})
}

// MarkRead flags all messages from one counterpart as read.
func (h *ChatHandler) MarkRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    otherID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid user id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Messages.MarkReadFrom(ctx, otherID, uid)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not mark read")
    }
    if n > 0 && h.Hub != nil {
        h.Hub.SendToUser(otherID, readAckFrame(uid))
    }
    return ok(c, http.StatusOK, echo.Map{"marked": n})
}

// Delete removes one of the caller's own sent messages.
func (h *ChatHandler) Delete(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    msgID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid message id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch err := h.Messages.DeleteBySender(ctx, msgID, uid); err {
    case nil:
        return okMsg(c, http.StatusOK, "message deleted", nil)
    case repository.ErrNotFound:
        return fail(c, http.StatusNotFound, "message not found")
    case repository.ErrForbidden:
        return fail(c, http.StatusForbidden, "only the sender can delete a message")
    default:
        return fail(c, http.StatusInternalServerError, "could not delete message")
    }
}

// OnlineUsers lists the user IDs currently marked online.
func (h *ChatHandler) OnlineUsers(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var ids []uint64
    if h.Presence != nil {
        ids = h.Presence.OnlineUsers(ctx)
    }
    if ids == nil {
        ids = []uint64{}
    }
    return ok(c, http.StatusOK, echo.Map{"online": ids, "count": len(ids)})
}

// readAckFrame tells a sender their messages to readerID were read.
func readAckFrame(readerID uint64) []byte {
    raw, _ := json.Marshal(echo.Map{"reader_id": readerID})
    out, _ := json.Marshal(ws.Frame{Event: ws.EvMessagesReadAck, Data: raw})
    return out
}
