package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/koshhq/kosh-backend/internal/model"
)

// OTPRepo provides data access to the otps table. Codes expire by
// timestamp comparison and are single-use; consumption happens in the
// same transaction that marks the owning user verified.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create inserts a fresh code for the user with the given validity window.
func (r *OTPRepo) Create(ctx context.Context, userID uint64, code string, ttl time.Duration) error {
	exp := time.Now().UTC().Add(ttl)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO otps (user_id, code, expires_at, used) VALUES (?,?,?,0)",
		userID, code, exp)
	return err
}

// FindActive returns the most recent unused, unexpired OTP row matching
// the code for the user. sql.ErrNoRows means the code is wrong, spent or
// expired; callers present all three identically so the response does not
// leak which check failed.
func (r *OTPRepo) FindActive(ctx context.Context, userID uint64, code string) (model.OTP, error) {
	var o model.OTP
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, code, expires_at, used, created_at
		 FROM otps
		 WHERE user_id=? AND code=? AND used=0 AND expires_at > UTC_TIMESTAMP()
		 ORDER BY created_at DESC LIMIT 1`,
		userID, code).Scan(&o.ID, &o.UserID, &o.Code, &o.ExpiresAt, &o.Used, &o.CreatedAt)
	return o, err
}

// ConsumeTx marks an OTP used inside an existing transaction. The guard on
// used=0 means a concurrent verify of the same code can succeed at most
// once; the loser sees zero rows affected and gets ErrNotFound.
func (r *OTPRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "UPDATE otps SET used=1 WHERE id=? AND used=0", id)
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
