// Package ws implements the real-time chat gateway. Each authenticated
// user holds at most one socket per instance; frames are JSON envelopes
// with an event name and a payload. Message sends are persisted before
// any emit, so a connected receiver never sees a message that is not yet
// queryable over REST.
package ws

import (
    "encoding/json"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
)

// Client-to-server event names.
const (
    EvMessageSend  = "message:send"
    EvTypingStart  = "typing:start"
    EvTypingStop   = "typing:stop"
    EvMessagesRead = "messages:read"
    EvUsersOnline  = "users:online"
)

// Server-to-client event names.
const (
    EvMessageSent     = "message:sent"
    EvMessageReceive  = "message:receive"
    EvTypingUser      = "typing:user"
    EvMessagesReadAck = "messages:read"
    EvUserOnline      = "user:online"
    EvUserOffline     = "user:offline"
    EvOnlineList      = "users:online:list"
    EvNotification    = "notification"
    EvError           = "error"
)

// Frame is the JSON envelope carried in both directions on the socket.
type Frame struct {
    Event string          `json:"event"`
    Data  json.RawMessage `json:"data,omitempty"`
}

// MessagePayload is the wire shape of a chat message.
type MessagePayload struct {
    ID         uint64 `json:"id"`
    SenderID   uint64 `json:"sender_id"`
    ReceiverID uint64 `json:"receiver_id"`
    Content    string `json:"content"`
    IsRead     bool   `json:"is_read"`
    CreatedAt  string `json:"created_at"`
}

// ToMessagePayload converts a stored message to its wire shape. The REST
// handlers use it too, so both surfaces serve identical message JSON.
func ToMessagePayload(m model.Message) MessagePayload {
    return MessagePayload{
        ID:         m.ID,
        SenderID:   m.SenderID,
        ReceiverID: m.ReceiverID,
        Content:    m.Content,
        IsRead:     m.IsRead,
        CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
    }
}

type sendReq struct {
    ReceiverID uint64 `json:"receiver_id"`
    Content    string `json:"content"`
}

type typingReq struct {
    ReceiverID uint64 `json:"receiver_id"`
}

type readReq struct {
    SenderID uint64 `json:"sender_id"`
}

// MessageFrame builds a ready-to-write frame carrying a chat message.
// Used by the REST send path to push to a connected receiver.
func MessageFrame(event string, m model.Message) []byte {
    return mustFrame(event, ToMessagePayload(m))
}

// mustFrame marshals an event payload into a ready-to-write frame. The
// payload types above contain nothing that can fail to marshal.
func mustFrame(event string, data any) []byte {
    raw, _ := json.Marshal(data)
    out, _ := json.Marshal(Frame{Event: event, Data: raw})
    return out
}

func errorFrame(msg string) []byte {
    return mustFrame(EvError, map[string]string{"message": msg})
}
