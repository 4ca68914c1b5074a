package repository

import (
    "context"
    "database/sql"

    "github.com/koshhq/kosh-backend/internal/model"
)

// NotificationRepo provides data access to the notifications table.
type NotificationRepo struct {
    db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create appends a notification row. Data is a pre-serialized JSON blob or
// nil when the event carries no payload.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO notifications (user_id, type, title, message, data, is_read)
         VALUES (?,?,?,?,?,0)`,
        n.UserID, n.Type, n.Title, n.Message, n.Data)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// ListForUser returns the user's notifications newest first, optionally
// restricted to unread rows.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    q := `SELECT id, user_id, type, title, message, data, is_read, created_at
          FROM notifications WHERE user_id=?`
    if unreadOnly {
        q += " AND is_read=0"
    }
    q += " ORDER BY created_at DESC, id DESC LIMIT ?"
    rows, err := r.db.QueryContext(ctx, q, userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Notification{}
    for rows.Next() {
        var n model.Notification
        if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
            &n.Data, &n.IsRead, &n.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, n)
    }
    return out, rows.Err()
}

// UnreadCount counts the user's unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (uint32, error) {
    var n uint32
    err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=0",
        userID).Scan(&n)
    return n, err
}

// MarkRead flips a single notification to read, enforcing ownership. A row
// owned by someone else and a missing row both come back as ErrNotFound so
// the endpoint does not reveal other users' notification IDs.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// MarkAllRead flips every unread notification the user owns.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        "UPDATE notifications SET is_read=1 WHERE user_id=? AND is_read=0", userID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// Delete removes a single notification, enforcing ownership.
func (r *NotificationRepo) Delete(ctx context.Context, id, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM notifications WHERE id=? AND user_id=?", id, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// ClearRead removes every already-read notification the user owns.
func (r *NotificationRepo) ClearRead(ctx context.Context, userID uint64) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM notifications WHERE user_id=? AND is_read=1", userID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
