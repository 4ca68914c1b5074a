package ws

import (
    "context"
    "database/sql"
    "encoding/json"
    "log"
    "sync"
    "time"

    "github.com/koshhq/kosh-backend/internal/presence"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// Hub owns the set of sockets connected to this instance and dispatches
// incoming frames. Local sockets are the delivery targets; the presence
// store is the cross-instance answer to "is this user online".
type Hub struct {
    Messages *repository.MessageRepo
    Users    *repository.UserRepo
    Presence *presence.Store

    mu      sync.RWMutex
    clients map[uint64]*Client
}

// NewHub constructs a Hub over its repositories and the presence store.
func NewHub(messages *repository.MessageRepo, users *repository.UserRepo, pres *presence.Store) *Hub {
    if messages == nil || users == nil || pres == nil {
        panic("nil dependency passed to NewHub")
    }
    return &Hub{
        Messages: messages,
        Users:    users,
        Presence: pres,
        clients:  make(map[uint64]*Client),
    }
}

// register installs a client as the user's socket. A previous socket for
// the same user is closed first; the newest connection wins.
func (h *Hub) register(c *Client) {
    h.mu.Lock()
    old := h.clients[c.userID]
    h.clients[c.userID] = c
    h.mu.Unlock()
    if old != nil {
        old.close()
    }

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    h.Presence.MarkOnline(ctx, c.userID)
    h.broadcast(mustFrame(EvUserOnline, map[string]uint64{"user_id": c.userID}), c.userID)
}

// unregister removes a client if it is still the user's current socket.
func (h *Hub) unregister(c *Client) {
    h.mu.Lock()
    current := h.clients[c.userID] == c
    if current {
        delete(h.clients, c.userID)
    }
    h.mu.Unlock()
    if !current {
        return
    }

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    h.Presence.MarkOffline(ctx, c.userID)
    h.broadcast(mustFrame(EvUserOffline, map[string]uint64{"user_id": c.userID}), c.userID)
}

// SendToUser delivers a frame to the user's socket on this instance.
// Returns false when the user is not connected here.
func (h *Hub) SendToUser(userID uint64, frame []byte) bool {
    h.mu.RLock()
    c := h.clients[userID]
    h.mu.RUnlock()
    if c == nil {
        return false
    }
    return c.trySend(frame)
}

// broadcast fans a frame out to every local socket except the named user.
func (h *Hub) broadcast(frame []byte, except uint64) {
    h.mu.RLock()
    targets := make([]*Client, 0, len(h.clients))
    for id, c := range h.clients {
        if id != except {
            targets = append(targets, c)
        }
    }
    h.mu.RUnlock()
    for _, c := range targets {
        c.trySend(frame)
    }
}

// handleFrame dispatches one client frame. Handlers answer on the same
// socket with result or error frames; persistence always happens before
// the corresponding emit.
func (h *Hub) handleFrame(c *Client, f Frame) {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    switch f.Event {
    case EvMessageSend:
        h.onMessageSend(ctx, c, f.Data)
    case EvTypingStart, EvTypingStop:
        h.onTyping(c, f)
    case EvMessagesRead:
        h.onMessagesRead(ctx, c, f.Data)
    case EvUsersOnline:
        ids := h.Presence.OnlineUsers(ctx)
        c.trySend(mustFrame(EvOnlineList, map[string][]uint64{"user_ids": ids}))
    default:
        c.trySend(errorFrame("unknown event"))
    }
}

func (h *Hub) onMessageSend(ctx context.Context, c *Client, data json.RawMessage) {
    var req sendReq
    if err := json.Unmarshal(data, &req); err != nil || req.ReceiverID == 0 || req.Content == "" {
        c.trySend(errorFrame("receiver_id and content required"))
        return
    }
    if _, err := h.Users.GetByID(ctx, req.ReceiverID); err != nil {
        if err == sql.ErrNoRows {
            c.trySend(errorFrame("receiver not found"))
        } else {
            c.trySend(errorFrame("send failed"))
        }
        return
    }
    msg, err := h.Messages.Create(ctx, c.userID, req.ReceiverID, req.Content)
    if err != nil {
        log.Printf("ws: persist message failed: %v", err)
        c.trySend(errorFrame("send failed"))
        return
    }
    payload := ToMessagePayload(msg)
    c.trySend(mustFrame(EvMessageSent, payload))
    h.SendToUser(req.ReceiverID, mustFrame(EvMessageReceive, payload))
}

// onTyping is a pure relay; nothing is persisted.
func (h *Hub) onTyping(c *Client, f Frame) {
    var req typingReq
    if err := json.Unmarshal(f.Data, &req); err != nil || req.ReceiverID == 0 {
        c.trySend(errorFrame("receiver_id required"))
        return
    }
    h.SendToUser(req.ReceiverID, mustFrame(EvTypingUser, map[string]any{
        "user_id": c.userID,
        "typing":  f.Event == EvTypingStart,
    }))
}

func (h *Hub) onMessagesRead(ctx context.Context, c *Client, data json.RawMessage) {
    var req readReq
    if err := json.Unmarshal(data, &req); err != nil || req.SenderID == 0 {
        c.trySend(errorFrame("sender_id required"))
        return
    }
    if _, err := h.Messages.MarkReadFrom(ctx, req.SenderID, c.userID); err != nil {
        log.Printf("ws: mark read failed: %v", err)
        c.trySend(errorFrame("mark read failed"))
        return
    }
    // Tell the original sender their messages were seen.
    h.SendToUser(req.SenderID, mustFrame(EvMessagesReadAck, map[string]uint64{"reader_id": c.userID}))
}
