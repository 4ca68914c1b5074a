package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
)

// ReviewRepo provides data access to the reviews table. A review attaches
// to either an item or a mentor, never both.
type ReviewRepo struct {
    db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review and returns its ID. Exactly one of ItemID and
// MentorID must be set; the handler validates this before calling.
func (r *ReviewRepo) Create(ctx context.Context, rv model.Review) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO reviews (author_id, item_id, mentor_id, rating, comment)
         VALUES (?,?,?,?,?)`,
        rv.AuthorID, rv.ItemID, rv.MentorID, rv.Rating, rv.Comment)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// ReviewItem is a review joined with its author.
type ReviewItem struct {
    ID        uint64 `json:"id"`
    AuthorID  uint64 `json:"author_id"`
    Author    string `json:"author"`
    Rating    uint8  `json:"rating"`
    Comment   string `json:"comment"`
    CreatedAt string `json:"created_at"`
}

// ListForItem returns an item's reviews newest first.
func (r *ReviewRepo) ListForItem(ctx context.Context, itemID uint64) ([]ReviewItem, error) {
    return r.list(ctx, "item_id", itemID)
}

// ListForMentor returns a mentor's reviews newest first.
func (r *ReviewRepo) ListForMentor(ctx context.Context, mentorID uint64) ([]ReviewItem, error) {
    return r.list(ctx, "mentor_id", mentorID)
}

func (r *ReviewRepo) list(ctx context.Context, col string, id uint64) ([]ReviewItem, error) {
    // col is one of two fixed column names chosen above, never user input.
    rows, err := r.db.QueryContext(ctx,
        `SELECT r.id, u.id, u.name, r.rating, r.comment, r.created_at
         FROM reviews r
         JOIN users u ON u.id = r.author_id
         WHERE r.`+col+` = ?
         ORDER BY r.created_at DESC, r.id DESC`, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []ReviewItem{}
    for rows.Next() {
        var (
            rv      ReviewItem
            created time.Time
        )
        if err := rows.Scan(&rv.ID, &rv.AuthorID, &rv.Author, &rv.Rating, &rv.Comment, &created); err != nil {
            return nil, err
        }
        rv.CreatedAt = created.UTC().Format(time.RFC3339)
        out = append(out, rv)
    }
    return out, rows.Err()
}

// AverageForItem returns the item's mean rating and review count. A zero
// count yields a zero average rather than an error.
func (r *ReviewRepo) AverageForItem(ctx context.Context, itemID uint64) (float64, uint32, error) {
    var (
        avg sql.NullFloat64
        n   uint32
    )
    err := r.db.QueryRowContext(ctx,
        "SELECT AVG(rating), COUNT(*) FROM reviews WHERE item_id=?", itemID).Scan(&avg, &n)
    if err != nil {
        return 0, 0, err
    }
    return avg.Float64, n, nil
}
