package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koshhq/kosh-backend/internal/model"
	"github.com/koshhq/kosh-backend/internal/utils"
)

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,password_hash,name,department,avatar_url,cover_url,is_verified,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Department,
		&u.AvatarURL, &u.CoverURL, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts an unverified user and returns its ID. The email is
// normalized to lowercase before insertion; handler-level signup logic is
// responsible for deleting any stale unverified duplicate first.
func (r *UserRepo) Create(ctx context.Context, email, password, name string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, is_verified) VALUES (?,?,?,0)",
		email, hash, name)
	if err != nil {
		// MySQL duplicate-key errors carry code 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// MarkVerifiedTx flips is_verified inside an existing transaction. Used by
// OTP verification which must mark the code used and the user verified
// atomically.
func (r *UserRepo) MarkVerifiedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET is_verified=1 WHERE id=?", id)
	return err
}

// DeleteUnverifiedByEmail removes a stale unverified account so the email
// can be claimed again by a fresh signup. OTP and token rows cascade via
// foreign keys. Returns the number of rows removed.
func (r *UserRepo) DeleteUnverifiedByEmail(ctx context.Context, email string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE email=? AND is_verified=0", email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete hard-deletes a user. Only used to roll back a signup whose OTP
// email could not be dispatched.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}

// UpdateProfile sets the mutable profile fields. Nil pointers leave the
// corresponding column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name *string, department, avatarURL, coverURL *string) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, *name)
	}
	if department != nil {
		sets = append(sets, "department=?")
		args = append(args, *department)
	}
	if avatarURL != nil {
		sets = append(sets, "avatar_url=?")
		args = append(args, *avatarURL)
	}
	if coverURL != nil {
		sets = append(sets, "cover_url=?")
		args = append(args, *coverURL)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}
