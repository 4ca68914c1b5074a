package model

import "time"

// Message is a persisted direct message between two users. Rows are
// created on send (REST or socket path), mutated only to flip the read
// flag, and deleted only by an explicit per-message delete by the sender.
type Message struct {
    ID         uint64    // messages.id
    SenderID   uint64    // messages.sender_id
    ReceiverID uint64    // messages.receiver_id
    Content    string    // messages.content
    IsRead     bool      // messages.is_read
    CreatedAt  time.Time // messages.created_at
}
