package repository

import (
    "context"
    "database/sql"

    "github.com/koshhq/kosh-backend/internal/model"
)

// TaskRepo provides data access to the tasks table. Every operation is
// scoped to the owning user; there is no cross-user task visibility.
type TaskRepo struct {
    db *sql.DB
}

// NewTaskRepo returns a new TaskRepo bound to the given database.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

// Create inserts a task and returns it with generated fields filled in.
func (r *TaskRepo) Create(ctx context.Context, userID uint64, title, date string) (model.Task, error) {
    var t model.Task
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO tasks (user_id, title, date, completed) VALUES (?,?,?,0)",
        userID, title, date)
    if err != nil {
        return t, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return t, err
    }
    err = r.db.QueryRowContext(ctx,
        "SELECT id, user_id, title, date, completed, created_at FROM tasks WHERE id=?",
        id).Scan(&t.ID, &t.UserID, &t.Title, &t.Date, &t.Completed, &t.CreatedAt)
    return t, err
}

// ListForUser returns the user's tasks, optionally restricted to one date.
func (r *TaskRepo) ListForUser(ctx context.Context, userID uint64, date string) ([]model.Task, error) {
    q := "SELECT id, user_id, title, date, completed, created_at FROM tasks WHERE user_id=?"
    args := []any{userID}
    if date != "" {
        q += " AND date=?"
        args = append(args, date)
    }
    q += " ORDER BY date ASC, id ASC"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Task{}
    for rows.Next() {
        var t model.Task
        if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Date, &t.Completed, &t.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// Update rewrites a task's mutable fields, enforcing ownership. Nil
// pointers leave the corresponding column untouched.
func (r *TaskRepo) Update(ctx context.Context, taskID, userID uint64, title, date *string, completed *bool) error {
    if err := r.checkOwner(ctx, taskID, userID); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx,
        `UPDATE tasks SET title=COALESCE(?, title), date=COALESCE(?, date),
                completed=COALESCE(?, completed)
         WHERE id=?`, title, date, completed, taskID)
    return err
}

// Delete removes a task, enforcing ownership.
func (r *TaskRepo) Delete(ctx context.Context, taskID, userID uint64) error {
    if err := r.checkOwner(ctx, taskID, userID); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", taskID)
    return err
}

func (r *TaskRepo) checkOwner(ctx context.Context, taskID, userID uint64) error {
    var owner uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT user_id FROM tasks WHERE id=? LIMIT 1", taskID).Scan(&owner)
    if err == sql.ErrNoRows {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if owner != userID {
        return ErrForbidden
    }
    return nil
}
