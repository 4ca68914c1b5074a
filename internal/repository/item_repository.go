package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/koshhq/kosh-backend/internal/model"
)

// ItemRepo provides data access to the items, categories, item_comments
// and buy_requests tables.
type ItemRepo struct {
    db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// EnsureCategory resolves a category name to its ID, creating the row on
// first use. Names are stored trimmed and lowercased so "Books" and
// "books" collapse into one shared category.
func (r *ItemRepo) EnsureCategory(ctx context.Context, name string) (uint64, error) {
    name = strings.ToLower(strings.TrimSpace(name))
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO categories (name) VALUES (?)", name)
    if err != nil {
        return 0, err
    }
    var id uint64
    err = r.db.QueryRowContext(ctx,
        "SELECT id FROM categories WHERE name=? LIMIT 1", name).Scan(&id)
    return id, err
}

// ItemFilter narrows the marketplace listing. Zero values mean "no
// constraint on this axis".
type ItemFilter struct {
    Category  string // category name, matched after normalization
    Condition string
    MinCents  uint32
    MaxCents  uint32
}

// ItemSummary is an item joined with its category and seller for the
// browse listing.
type ItemSummary struct {
    ID         uint64  `json:"id"`
    Title      string  `json:"title"`
    PriceCents uint32  `json:"price_cents"`
    Condition  string  `json:"condition"`
    ImageURL   *string `json:"image_url,omitempty"`
    Category   string  `json:"category"`
    SellerID   uint64  `json:"seller_id"`
    SellerName string  `json:"seller_name"`
    CreatedAt  string  `json:"created_at"`
}

// List returns items matching the filter, newest first.
func (r *ItemRepo) List(ctx context.Context, f ItemFilter, limit int) ([]ItemSummary, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    q := `SELECT i.id, i.title, i.price_cents, i.condition, i.image_url,
                 c.name, u.id, u.name, i.created_at
          FROM items i
          JOIN categories c ON c.id = i.category_id
          JOIN users u ON u.id = i.seller_id
          WHERE 1=1`
    args := []any{}
    if f.Category != "" {
        q += " AND c.name = ?"
        args = append(args, strings.ToLower(strings.TrimSpace(f.Category)))
    }
    if f.Condition != "" {
        q += " AND i.condition = ?"
        args = append(args, f.Condition)
    }
    if f.MinCents > 0 {
        q += " AND i.price_cents >= ?"
        args = append(args, f.MinCents)
    }
    if f.MaxCents > 0 {
        q += " AND i.price_cents <= ?"
        args = append(args, f.MaxCents)
    }
    q += " ORDER BY i.created_at DESC, i.id DESC LIMIT ?"
    args = append(args, limit)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []ItemSummary{}
    for rows.Next() {
        var (
            it      ItemSummary
            created time.Time
        )
        if err := rows.Scan(&it.ID, &it.Title, &it.PriceCents, &it.Condition,
            &it.ImageURL, &it.Category, &it.SellerID, &it.SellerName, &created); err != nil {
            return nil, err
        }
        it.CreatedAt = created.UTC().Format(time.RFC3339)
        out = append(out, it)
    }
    return out, rows.Err()
}

// Create inserts an item and returns its ID.
func (r *ItemRepo) Create(ctx context.Context, it model.Item) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO items (seller_id, category_id, title, description, price_cents, `+"`condition`"+`, image_url)
         VALUES (?,?,?,?,?,?,?)`,
        it.SellerID, it.CategoryID, it.Title, it.Description, it.PriceCents, it.Condition, it.ImageURL)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByID loads a single item. ErrNotFound when absent.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
    var it model.Item
    err := r.db.QueryRowContext(ctx,
        `SELECT id, seller_id, category_id, title, description, price_cents, `+"`condition`"+`, image_url, created_at
         FROM items WHERE id=? LIMIT 1`, id).
        Scan(&it.ID, &it.SellerID, &it.CategoryID, &it.Title, &it.Description,
            &it.PriceCents, &it.Condition, &it.ImageURL, &it.CreatedAt)
    if err == sql.ErrNoRows {
        return it, ErrNotFound
    }
    return it, err
}

// DeleteByOwner removes an item, enforcing that the caller is its seller.
// Comments, reviews and buy requests cascade via foreign keys.
func (r *ItemRepo) DeleteByOwner(ctx context.Context, itemID, sellerID uint64) error {
    var owner uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT seller_id FROM items WHERE id=? LIMIT 1", itemID).Scan(&owner)
    if err == sql.ErrNoRows {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if owner != sellerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, "DELETE FROM items WHERE id=?", itemID)
    return err
}

// CommentItem is a comment joined with its author for display threads.
type CommentItem struct {
    ID         uint64  `json:"id"`
    UserID     uint64  `json:"user_id"`
    UserName   string  `json:"user_name"`
    AvatarURL  *string `json:"avatar_url,omitempty"`
    Content    string  `json:"content"`
    CreatedAt  string  `json:"created_at"`
}

// CreateComment appends a comment to an item.
func (r *ItemRepo) CreateComment(ctx context.Context, itemID, userID uint64, content string) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO item_comments (item_id, user_id, content) VALUES (?,?,?)",
        itemID, userID, content)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// ListComments returns an item's comments oldest first.
func (r *ItemRepo) ListComments(ctx context.Context, itemID uint64) ([]CommentItem, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT ic.id, u.id, u.name, u.avatar_url, ic.content, ic.created_at
         FROM item_comments ic
         JOIN users u ON u.id = ic.user_id
         WHERE ic.item_id = ?
         ORDER BY ic.created_at ASC, ic.id ASC`, itemID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []CommentItem{}
    for rows.Next() {
        var (
            c       CommentItem
            created time.Time
        )
        if err := rows.Scan(&c.ID, &c.UserID, &c.UserName, &c.AvatarURL, &c.Content, &created); err != nil {
            return nil, err
        }
        c.CreatedAt = created.UTC().Format(time.RFC3339)
        out = append(out, c)
    }
    return out, rows.Err()
}

// DeleteCommentByOwner removes a comment, enforcing authorship.
func (r *ItemRepo) DeleteCommentByOwner(ctx context.Context, commentID, userID uint64) error {
    var owner uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT user_id FROM item_comments WHERE id=? LIMIT 1", commentID).Scan(&owner)
    if err == sql.ErrNoRows {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if owner != userID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, "DELETE FROM item_comments WHERE id=?", commentID)
    return err
}

// CreateBuyRequest records a buyer's interest in an item. At most one
// pending request per (item, buyer) pair; a duplicate insert is absorbed
// by INSERT IGNORE and the existing row's ID is returned.
func (r *ItemRepo) CreateBuyRequest(ctx context.Context, itemID, buyerID uint64) (uint64, error) {
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO buy_requests (item_id, buyer_id, status) VALUES (?,?,?)",
        itemID, buyerID, model.BuyRequestPending)
    if err != nil {
        return 0, err
    }
    var id uint64
    err = r.db.QueryRowContext(ctx,
        "SELECT id FROM buy_requests WHERE item_id=? AND buyer_id=? LIMIT 1",
        itemID, buyerID).Scan(&id)
    return id, err
}

// GetBuyRequest loads a buy request by ID. ErrNotFound when absent.
func (r *ItemRepo) GetBuyRequest(ctx context.Context, id uint64) (model.BuyRequest, error) {
    var b model.BuyRequest
    err := r.db.QueryRowContext(ctx,
        "SELECT id, item_id, buyer_id, status, created_at FROM buy_requests WHERE id=? LIMIT 1",
        id).Scan(&b.ID, &b.ItemID, &b.BuyerID, &b.Status, &b.CreatedAt)
    if err == sql.ErrNoRows {
        return b, ErrNotFound
    }
    return b, err
}

// AcceptBuyRequest flips a pending buy request to accepted. ErrNotPending
// when the request already left pending.
func (r *ItemRepo) AcceptBuyRequest(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE buy_requests SET status=? WHERE id=? AND status=?",
        model.BuyRequestAccepted, id, model.BuyRequestPending)
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
