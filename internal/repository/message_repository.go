package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
)

// MessageRepo provides data access to the messages table. Both the REST
// chat endpoints and the websocket gateway persist through this type, so
// a message delivered over the socket is always queryable over REST.
type MessageRepo struct {
    db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create persists a message and returns it with generated fields filled in.
func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID uint64, content string) (model.Message, error) {
    var m model.Message
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO messages (sender_id, receiver_id, content, is_read)
         VALUES (?,?,?,0)`, senderID, receiverID, content)
    if err != nil {
        return m, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return m, err
    }
    err = r.db.QueryRowContext(ctx,
        `SELECT id, sender_id, receiver_id, content, is_read, created_at
         FROM messages WHERE id=?`, id).
        Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt)
    return m, err
}

// ListBetween returns up to limit messages between the two users, newest
// first, optionally restricted to rows created strictly before the cursor.
// Callers reverse the slice for chronological display.
func (r *MessageRepo) ListBetween(ctx context.Context, userID, otherID uint64, limit int, before *time.Time) ([]model.Message, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    q := `SELECT id, sender_id, receiver_id, content, is_read, created_at
          FROM messages
          WHERE (sender_id=? AND receiver_id=?) OR (sender_id=? AND receiver_id=?)`
    args := []any{userID, otherID, otherID, userID}
    if before != nil {
        q += " AND created_at < ?"
        args = append(args, before.UTC())
    }
    q += " ORDER BY created_at DESC, id DESC LIMIT ?"
    args = append(args, limit)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Message{}
    for rows.Next() {
        var m model.Message
        if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// MarkReadFrom flags every unread message from sender to receiver as read
// and returns how many rows flipped. Fetching a conversation page and the
// socket messages:read event both funnel through here.
func (r *MessageRepo) MarkReadFrom(ctx context.Context, senderID, receiverID uint64) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        "UPDATE messages SET is_read=1 WHERE sender_id=? AND receiver_id=? AND is_read=0",
        senderID, receiverID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// DeleteBySender removes a single message, but only when the caller is its
// sender. ErrNotFound covers a missing row, ErrForbidden a row owned by
// someone else.
func (r *MessageRepo) DeleteBySender(ctx context.Context, messageID, senderID uint64) error {
    var owner uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT sender_id FROM messages WHERE id=? LIMIT 1", messageID).Scan(&owner)
    if err == sql.ErrNoRows {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if owner != senderID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, "DELETE FROM messages WHERE id=?", messageID)
    return err
}

// Conversation summarizes a counterpart in the user's message history:
// who they are, the latest message exchanged and how many of their
// messages remain unread.
type Conversation struct {
    UserID      uint64  `json:"user_id"`
    Name        string  `json:"name"`
    AvatarURL   *string `json:"avatar_url,omitempty"`
    LastMessage string  `json:"last_message"`
    LastSentAt  string  `json:"last_sent_at"`
    LastFromMe  bool    `json:"last_from_me"`
    UnreadCount uint32  `json:"unread_count"`
    Online      bool    `json:"online"` // decorated by the handler, not stored
}

// ListConversations derives the distinct counterpart list from the message
// history, most recent conversation first.
func (r *MessageRepo) ListConversations(ctx context.Context, userID uint64) ([]Conversation, error) {
    // One row per counterpart: the latest message decides ordering and
    // preview, a correlated count supplies unread.
    const q = `
        SELECT u.id, u.name, u.avatar_url,
               m.content, m.created_at, m.sender_id,
               (SELECT COUNT(*) FROM messages x
                WHERE x.sender_id = u.id AND x.receiver_id = ? AND x.is_read = 0)
        FROM messages m
        JOIN (
            SELECT IF(sender_id = ?, receiver_id, sender_id) AS other_id,
                   MAX(id) AS last_id
            FROM messages
            WHERE sender_id = ? OR receiver_id = ?
            GROUP BY other_id
        ) last ON last.last_id = m.id
        JOIN users u ON u.id = last.other_id
        ORDER BY m.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID, userID, userID, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []Conversation{}
    for rows.Next() {
        var (
            c        Conversation
            sentAt   time.Time
            senderID uint64
        )
        if err := rows.Scan(&c.UserID, &c.Name, &c.AvatarURL,
            &c.LastMessage, &sentAt, &senderID, &c.UnreadCount); err != nil {
            return nil, err
        }
        c.LastSentAt = sentAt.UTC().Format(time.RFC3339)
        c.LastFromMe = senderID == userID
        out = append(out, c)
    }
    return out, rows.Err()
}

// UnreadTotal counts all unread messages addressed to the user.
func (r *MessageRepo) UnreadTotal(ctx context.Context, userID uint64) (uint32, error) {
    var n uint32
    err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM messages WHERE receiver_id=? AND is_read=0",
        userID).Scan(&n)
    return n, err
}
