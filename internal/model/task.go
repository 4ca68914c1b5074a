package model

import "time"

// Task is a per-user to-do entry tied to a calendar date. The date is
// stored as a YYYY-MM-DD string to match the client contract.
type Task struct {
    ID        uint64    // tasks.id
    UserID    uint64    // tasks.user_id
    Title     string    // tasks.title
    Date      string    // tasks.date (YYYY-MM-DD)
    Completed bool      // tasks.completed
    CreatedAt time.Time // tasks.created_at
}
