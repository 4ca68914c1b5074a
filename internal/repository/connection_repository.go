package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
)

// ConnectionRepo provides data access to the mentors, mentees and
// connection_requests tables. The request lifecycle for a (mentor, mentee)
// pair is: none -> pending -> accepted|rejected. A pending row may be
// deleted by the mentee; terminal rejected rows are swept and replaced
// when the pair is requested again.
//
// All state transitions that read then write run inside a single
// transaction with the pair's rows locked (SELECT ... FOR UPDATE), so two
// concurrent requests for the same pair cannot both pass the "no active
// request" check. The invariant is: at most one row per pair in a live
// state (pending or accepted) at any time.
type ConnectionRepo struct {
    db *sql.DB
}

// NewConnectionRepo returns a new ConnectionRepo bound to the given database.
func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose a
// transaction spanning several repositories.
func (r *ConnectionRepo) DB() *sql.DB { return r.db }

// EnsureMentor lazily creates the mentor role row for a user and returns
// its ID. Safe to call repeatedly; the insert is ignored on duplicates.
func (r *ConnectionRepo) EnsureMentor(ctx context.Context, userID uint64) (uint64, error) {
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO mentors (user_id) VALUES (?)", userID)
    if err != nil {
        return 0, err
    }
    var id uint64
    err = r.db.QueryRowContext(ctx,
        "SELECT id FROM mentors WHERE user_id=? LIMIT 1", userID).Scan(&id)
    return id, err
}

// EnsureMentee lazily creates the mentee role row for a user and returns
// its ID.
func (r *ConnectionRepo) EnsureMentee(ctx context.Context, userID uint64) (uint64, error) {
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO mentees (user_id) VALUES (?)", userID)
    if err != nil {
        return 0, err
    }
    var id uint64
    err = r.db.QueryRowContext(ctx,
        "SELECT id FROM mentees WHERE user_id=? LIMIT 1", userID).Scan(&id)
    return id, err
}

// MentorIDByUserID resolves a user to their mentor role row. Returns
// ErrNotFound when the user has never become a mentor.
func (r *ConnectionRepo) MentorIDByUserID(ctx context.Context, userID uint64) (uint64, error) {
    var id uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT id FROM mentors WHERE user_id=? LIMIT 1", userID).Scan(&id)
    if err == sql.ErrNoRows {
        return 0, ErrNotFound
    }
    return id, err
}

// UserIDByMentorID resolves a mentor role row to the user behind it.
// Returns ErrNotFound when no such mentor exists, which callers surface
// as a 404 before touching the request tables.
func (r *ConnectionRepo) UserIDByMentorID(ctx context.Context, mentorID uint64) (uint64, error) {
    var userID uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT user_id FROM mentors WHERE id=? LIMIT 1", mentorID).Scan(&userID)
    if err == sql.ErrNoRows {
        return 0, ErrNotFound
    }
    return userID, err
}

// MentorSummary is a mentor joined with their user record, as shown on the
// mentor browse page.
type MentorSummary struct {
    MentorID   uint64  `json:"mentor_id"`
    UserID     uint64  `json:"user_id"`
    Name       string  `json:"name"`
    Email      string  `json:"email"`
    Department *string `json:"department,omitempty"`
    AvatarURL  *string `json:"avatar_url,omitempty"`
    Bio        *string `json:"bio,omitempty"`
    Expertise  *string `json:"expertise,omitempty"`
}

// ListMentors returns all mentors with their user summaries, excluding the
// caller so users do not see themselves in the browse list.
func (r *ConnectionRepo) ListMentors(ctx context.Context, excludeUserID uint64) ([]MentorSummary, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT m.id, u.id, u.name, u.email, u.department, u.avatar_url, m.bio, m.expertise
         FROM mentors m
         JOIN users u ON u.id = m.user_id
         WHERE u.is_verified = 1 AND u.id <> ?
         ORDER BY u.name`, excludeUserID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []MentorSummary{}
    for rows.Next() {
        var m MentorSummary
        if err := rows.Scan(&m.MentorID, &m.UserID, &m.Name, &m.Email,
            &m.Department, &m.AvatarURL, &m.Bio, &m.Expertise); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// SetMentorProfile updates the optional mentor bio/expertise fields.
func (r *ConnectionRepo) SetMentorProfile(ctx context.Context, mentorID uint64, bio, expertise *string) error {
    _, err := r.db.ExecContext(ctx,
        "UPDATE mentors SET bio=COALESCE(?, bio), expertise=COALESCE(?, expertise) WHERE id=?",
        bio, expertise, mentorID)
    return err
}

// CreatePending inserts a fresh pending request for the pair, enforcing
// the at-most-one-active invariant. Inside one transaction it locks the
// pair's existing rows, fails with ErrAlreadyPending or ErrAlreadyConnected
// when a live row exists, deletes any rejected leftovers and inserts the
// new pending row. Sweeping rejected history instead of keeping it is a
// deliberate contract choice: a pair has at most one row worth reasoning
// about.
func (r *ConnectionRepo) CreatePending(ctx context.Context, mentorID, menteeID uint64) (model.ConnectionRequest, error) {
    var req model.ConnectionRequest
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return req, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    rows, err := tx.QueryContext(ctx,
        `SELECT id, status FROM connection_requests
         WHERE mentor_id=? AND mentee_id=? FOR UPDATE`, mentorID, menteeID)
    if err != nil {
        return req, err
    }
    var staleIDs []uint64
    for rows.Next() {
        var (
            id     uint64
            status string
        )
        if err := rows.Scan(&id, &status); err != nil {
            rows.Close()
            return req, err
        }
        switch status {
        case model.RequestPending:
            rows.Close()
            return req, ErrAlreadyPending
        case model.RequestAccepted:
            rows.Close()
            return req, ErrAlreadyConnected
        default:
            staleIDs = append(staleIDs, id)
        }
    }
    if err := rows.Close(); err != nil {
        return req, err
    }
    for _, id := range staleIDs {
        if _, err := tx.ExecContext(ctx,
            "DELETE FROM connection_requests WHERE id=?", id); err != nil {
            return req, err
        }
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO connection_requests (mentor_id, mentee_id, status, sent_at)
         VALUES (?,?,?,UTC_TIMESTAMP())`, mentorID, menteeID, model.RequestPending)
    if err != nil {
        return req, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return req, err
    }
    err = tx.QueryRowContext(ctx,
        `SELECT id, mentor_id, mentee_id, status, sent_at, responded_at
         FROM connection_requests WHERE id=?`, id).
        Scan(&req.ID, &req.MentorID, &req.MenteeID, &req.Status, &req.SentAt, &req.RespondedAt)
    if err != nil {
        return req, err
    }
    if err := tx.Commit(); err != nil {
        return req, err
    }
    committed = true
    return req, nil
}

// RequestDetail is a connection request joined with the user IDs behind
// both role rows, so handlers can authorize the caller and address
// notifications without extra lookups.
type RequestDetail struct {
    model.ConnectionRequest
    MentorUserID uint64
    MenteeUserID uint64
}

// GetDetail loads a request with both participants' user IDs. Returns
// ErrNotFound when the row does not exist.
func (r *ConnectionRepo) GetDetail(ctx context.Context, requestID uint64) (RequestDetail, error) {
    var d RequestDetail
    err := r.db.QueryRowContext(ctx,
        `SELECT cr.id, cr.mentor_id, cr.mentee_id, cr.status, cr.sent_at, cr.responded_at,
                m.user_id, e.user_id
         FROM connection_requests cr
         JOIN mentors m ON m.id = cr.mentor_id
         JOIN mentees e ON e.id = cr.mentee_id
         WHERE cr.id = ?`, requestID).
        Scan(&d.ID, &d.MentorID, &d.MenteeID, &d.Status, &d.SentAt, &d.RespondedAt,
            &d.MentorUserID, &d.MenteeUserID)
    if err == sql.ErrNoRows {
        return d, ErrNotFound
    }
    return d, err
}

// Respond moves a pending request to accepted or rejected and stamps
// responded_at. The status guard in the WHERE clause makes the transition
// atomic: a request that already left pending yields ErrNotPending.
func (r *ConnectionRepo) Respond(ctx context.Context, requestID uint64, status string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE connection_requests
         SET status=?, responded_at=UTC_TIMESTAMP()
         WHERE id=? AND status=?`, status, requestID, model.RequestPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotPending
    }
    return nil
}

// DeletePending removes a request while it is still pending. Used for
// cancellation by the original mentee.
func (r *ConnectionRepo) DeletePending(ctx context.Context, requestID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM connection_requests WHERE id=? AND status=?",
        requestID, model.RequestPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotPending
    }
    return nil
}

// UpsertAccepted forces the pair into the accepted state. This is the
// marketplace bridge: accepting a buy request promotes seller and buyer
// into mentor/mentee roles and links them so chat unlocks. A pending row
// is promoted in place, an accepted row is left alone, and rejected
// leftovers are swept before inserting fresh. Runs under the same pair
// lock as CreatePending.
func (r *ConnectionRepo) UpsertAccepted(ctx context.Context, mentorID, menteeID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    rows, err := tx.QueryContext(ctx,
        `SELECT id, status FROM connection_requests
         WHERE mentor_id=? AND mentee_id=? FOR UPDATE`, mentorID, menteeID)
    if err != nil {
        return err
    }
    var (
        pendingID uint64
        accepted  bool
        staleIDs  []uint64
    )
    for rows.Next() {
        var (
            id     uint64
            status string
        )
        if err := rows.Scan(&id, &status); err != nil {
            rows.Close()
            return err
        }
        switch status {
        case model.RequestPending:
            pendingID = id
        case model.RequestAccepted:
            accepted = true
        default:
            staleIDs = append(staleIDs, id)
        }
    }
    if err := rows.Close(); err != nil {
        return err
    }
    for _, id := range staleIDs {
        if _, err := tx.ExecContext(ctx,
            "DELETE FROM connection_requests WHERE id=?", id); err != nil {
            return err
        }
    }
    switch {
    case accepted:
        // already linked, nothing to do
    case pendingID != 0:
        if _, err := tx.ExecContext(ctx,
            `UPDATE connection_requests SET status=?, responded_at=UTC_TIMESTAMP() WHERE id=?`,
            model.RequestAccepted, pendingID); err != nil {
            return err
        }
    default:
        if _, err := tx.ExecContext(ctx,
            `INSERT INTO connection_requests (mentor_id, mentee_id, status, sent_at, responded_at)
             VALUES (?,?,?,UTC_TIMESTAMP(),UTC_TIMESTAMP())`,
            mentorID, menteeID, model.RequestAccepted); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// RequestItem is a request row joined with the counterpart user, as shown
// in the incoming/outgoing request lists.
type RequestItem struct {
    ID          uint64  `json:"id"`
    Status      string  `json:"status"`
    SentAt      string  `json:"sent_at"`
    RespondedAt *string `json:"responded_at,omitempty"`
    UserID      uint64  `json:"user_id"`
    Name        string  `json:"name"`
    Email       string  `json:"email"`
    AvatarURL   *string `json:"avatar_url,omitempty"`
}

// ListIncoming returns requests addressed to the user in their mentor
// role, newest first, with the requesting mentee's user summary.
func (r *ConnectionRepo) ListIncoming(ctx context.Context, mentorUserID uint64) ([]RequestItem, error) {
    const q = `SELECT cr.id, cr.status, cr.sent_at, cr.responded_at,
                      u.id, u.name, u.email, u.avatar_url
               FROM connection_requests cr
               JOIN mentors m ON m.id = cr.mentor_id
               JOIN mentees e ON e.id = cr.mentee_id
               JOIN users u ON u.id = e.user_id
               WHERE m.user_id = ?
               ORDER BY cr.sent_at DESC`
    return r.listRequests(ctx, q, mentorUserID)
}

// ListOutgoing returns requests the user has sent in their mentee role,
// newest first, with the addressed mentor's user summary.
func (r *ConnectionRepo) ListOutgoing(ctx context.Context, menteeUserID uint64) ([]RequestItem, error) {
    const q = `SELECT cr.id, cr.status, cr.sent_at, cr.responded_at,
                      u.id, u.name, u.email, u.avatar_url
               FROM connection_requests cr
               JOIN mentors m ON m.id = cr.mentor_id
               JOIN mentees e ON e.id = cr.mentee_id
               JOIN users u ON u.id = m.user_id
               WHERE e.user_id = ?
               ORDER BY cr.sent_at DESC`
    return r.listRequests(ctx, q, menteeUserID)
}

func (r *ConnectionRepo) listRequests(ctx context.Context, query string, userID uint64) ([]RequestItem, error) {
    rows, err := r.db.QueryContext(ctx, query, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []RequestItem{}
    for rows.Next() {
        var (
            it          RequestItem
            sentAt      sql.NullTime
            respondedAt sql.NullTime
        )
        if err := rows.Scan(&it.ID, &it.Status, &sentAt, &respondedAt,
            &it.UserID, &it.Name, &it.Email, &it.AvatarURL); err != nil {
            return nil, err
        }
        if sentAt.Valid {
            it.SentAt = sentAt.Time.UTC().Format(time.RFC3339)
        }
        if respondedAt.Valid {
            s := respondedAt.Time.UTC().Format(time.RFC3339)
            it.RespondedAt = &s
        }
        out = append(out, it)
    }
    return out, rows.Err()
}

// ConnectedUser is the counterpart of an accepted connection, tagged with
// the calling user's role in that pair. This list feeds the chat contact
// sidebar.
type ConnectedUser struct {
    RequestID  uint64  `json:"request_id"`
    UserID     uint64  `json:"user_id"`
    Name       string  `json:"name"`
    Email      string  `json:"email"`
    AvatarURL  *string `json:"avatar_url,omitempty"`
    Department *string `json:"department,omitempty"`
    MyRole     string  `json:"my_role"` // "mentor" or "mentee" in this pair
}

// ConnectedUsers returns the counterpart user for every accepted request
// where the caller appears on either side.
func (r *ConnectionRepo) ConnectedUsers(ctx context.Context, userID uint64) ([]ConnectedUser, error) {
    const q = `
        SELECT cr.id, u.id, u.name, u.email, u.avatar_url, u.department, 'mentor'
        FROM connection_requests cr
        JOIN mentors m ON m.id = cr.mentor_id
        JOIN mentees e ON e.id = cr.mentee_id
        JOIN users u ON u.id = e.user_id
        WHERE cr.status = ? AND m.user_id = ?
        UNION ALL
        SELECT cr.id, u.id, u.name, u.email, u.avatar_url, u.department, 'mentee'
        FROM connection_requests cr
        JOIN mentors m ON m.id = cr.mentor_id
        JOIN mentees e ON e.id = cr.mentee_id
        JOIN users u ON u.id = m.user_id
        WHERE cr.status = ? AND e.user_id = ?`
    rows, err := r.db.QueryContext(ctx, q,
        model.RequestAccepted, userID, model.RequestAccepted, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []ConnectedUser{}
    for rows.Next() {
        var cu ConnectedUser
        if err := rows.Scan(&cu.RequestID, &cu.UserID, &cu.Name, &cu.Email,
            &cu.AvatarURL, &cu.Department, &cu.MyRole); err != nil {
            return nil, err
        }
        out = append(out, cu)
    }
    return out, rows.Err()
}
