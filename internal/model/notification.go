package model

import "time"

// Notification event type tags used by the components that fan out
// notifications. Stored verbatim in notifications.type.
const (
    NotifConnectionRequest  = "connection_request"
    NotifConnectionAccepted = "connection_accepted"
    NotifConnectionRejected = "connection_rejected"
    NotifBuyRequest         = "buy_request"
    NotifBuyAccepted        = "buy_request_accepted"
    NotifNewComment         = "item_comment"
)

// Notification is an append-only record surfaced to its owning user.
// Data holds an opaque JSON payload whose shape depends on Type.
// Only the read flag mutates after creation; rows may be deleted or
// cleared by the owner.
type Notification struct {
    ID        uint64    // notifications.id
    UserID    uint64    // notifications.user_id
    Type      string    // notifications.type
    Title     string    // notifications.title
    Message   string    // notifications.message
    Data      *string   // notifications.data (nullable JSON blob)
    IsRead    bool      // notifications.is_read
    CreatedAt time.Time // notifications.created_at
}
