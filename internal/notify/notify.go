// Package notify is the internal notification helper other components
// call after their primary write succeeds. Notification creation is
// best-effort by contract: failures are logged and never propagate, so an
// item still gets created even when telling the seller about it fails.
package notify

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/queue"
    "github.com/koshhq/kosh-backend/internal/repository"
    queue_publisher "github.com/koshhq/kosh-backend/internal/service"
)

// RealtimeSender pushes a frame to a connected user. Satisfied by *ws.Hub;
// nil disables real-time pushes.
type RealtimeSender interface {
    SendToUser(userID uint64, frame []byte) bool
}

// Notifier persists notifications and fans them out: a broker event for
// the audit log and, when the target holds a live socket on this
// instance, an immediate push frame.
type Notifier struct {
    Repo *repository.NotificationRepo
    Hub  RealtimeSender
}

// New constructs a Notifier. Hub may be nil.
func New(repo *repository.NotificationRepo, hub RealtimeSender) *Notifier {
    if repo == nil {
        panic("nil repository passed to notify.New")
    }
    return &Notifier{Repo: repo, Hub: hub}
}

// Notify writes the notification row and fans out. The data payload is
// JSON-serialized; a nil map stores NULL. Always returns to the caller
// without error — every failure path only logs.
func (n *Notifier) Notify(ctx context.Context, userID uint64, typ, title, message string, data map[string]any) {
    rec := model.Notification{
        UserID:  userID,
        Type:    typ,
        Title:   title,
        Message: message,
    }
    if data != nil {
        raw, err := json.Marshal(data)
        if err != nil {
            log.Printf("notify: marshal payload failed: %v", err)
        } else {
            s := string(raw)
            rec.Data = &s
        }
    }
    id, err := n.Repo.Create(ctx, rec)
    if err != nil {
        log.Printf("notify: create notification failed (user=%d type=%s): %v", userID, typ, err)
        return
    }

    // Row is durable; everything past this point is double best-effort.
    _ = queue_publisher.PublishNotificationCreated(ctx, queue.NotificationCreatedEvent{
        NotificationID: id,
        UserID:         userID,
        Type:           typ,
        Title:          title,
        Message:        message,
        CreatedAt:      time.Now().UTC().Format(time.RFC3339),
    })

    if n.Hub != nil {
        frame, err := json.Marshal(map[string]any{
            "event": "notification",
            "data": map[string]any{
                "id":      id,
                "type":    typ,
                "title":   title,
                "message": message,
                "data":    data,
            },
        })
        if err == nil {
            n.Hub.SendToUser(userID, frame)
        }
    }
}
