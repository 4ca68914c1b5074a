// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationCreatedEvent is published after a notification row is
// written. It carries enough for downstream consumers to log or trigger
// analytics without querying the primary database. Delivery is
// best-effort: the database row is the source of truth and a lost event
// only costs the audit line.
type NotificationCreatedEvent struct {
    NotificationID uint64 `json:"notification_id"`
    UserID         uint64 `json:"user_id"`
    Type           string `json:"type"`
    Title          string `json:"title"`
    Message        string `json:"message"`
    CreatedAt      string `json:"created_at"`
}

// OutboundEmailEvent queues a non-critical email (e.g. the post-verification
// welcome mail) for delivery off the request path. OTP mail is NOT sent
// through here — signup must fail when that dispatch fails, so it goes out
// synchronously.
type OutboundEmailEvent struct {
    To      string `json:"to"`
    Subject string `json:"subject"`
    Body    string `json:"body"`
}
