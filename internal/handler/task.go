package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/repository"
    "github.com/koshhq/kosh-backend/internal/utils"
)

// TaskHandler covers the personal task planner. Tasks are private to
// their owner; every operation checks ownership.
type TaskHandler struct {
    Tasks *repository.TaskRepo
}

func NewTaskHandler(repo *repository.TaskRepo) *TaskHandler {
    if repo == nil {
        panic("nil repository passed to NewTaskHandler")
    }
    return &TaskHandler{Tasks: repo}
}

type createTaskReq struct {
    Title string `json:"title"`
    Date  string `json:"date"` // YYYY-MM-DD
}
type updateTaskReq struct {
    Title     *string `json:"title"`
    Date      *string `json:"date"`
    Completed *bool   `json:"completed"`
}

type taskPart struct {
    ID        uint64 `json:"id"`
    Title     string `json:"title"`
    Date      string `json:"date"`
    Completed bool   `json:"completed"`
    CreatedAt string `json:"created_at"`
}

func toTaskPart(t model.Task) taskPart {
    return taskPart{
        ID:        t.ID,
        Title:     t.Title,
        Date:      t.Date,
        Completed: t.Completed,
        CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// Create adds a task on a calendar day. The date must be a real calendar
// date, not merely shaped like one.
func (h *TaskHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req createTaskReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    req.Title = strings.TrimSpace(req.Title)
    if req.Title == "" {
        return fail(c, http.StatusBadRequest, "title is required")
    }
    if !utils.ValidTaskDate(req.Date) {
        return fail(c, http.StatusBadRequest, "date must be a valid YYYY-MM-DD")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    task, err := h.Tasks.Create(ctx, uid, req.Title, req.Date)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not create task")
    }
    return okMsg(c, http.StatusCreated, "task created", toTaskPart(task))
}

// List returns the caller's tasks, optionally filtered to one day with
// ?date=YYYY-MM-DD.
func (h *TaskHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    date := c.QueryParam("date")
    if date != "" && !utils.ValidTaskDate(date) {
        return fail(c, http.StatusBadRequest, "date must be a valid YYYY-MM-DD")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    raw, err := h.Tasks.ListForUser(ctx, uid, date)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "could not list tasks")
    }
    tasks := make([]taskPart, len(raw))
    for i, t := range raw {
        tasks[i] = toTaskPart(t)
    }
    return ok(c, http.StatusOK, echo.Map{"tasks": tasks, "count": len(tasks)})
}

// Update patches title, date or completion on the caller's own task.
func (h *TaskHandler) Update(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    taskID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid task id")
    }
    var req updateTaskReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.Title == nil && req.Date == nil && req.Completed == nil {
        return fail(c, http.StatusBadRequest, "nothing to update")
    }
    if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
        return fail(c, http.StatusBadRequest, "title cannot be empty")
    }
    if req.Date != nil && !utils.ValidTaskDate(*req.Date) {
        return fail(c, http.StatusBadRequest, "date must be a valid YYYY-MM-DD")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch err := h.Tasks.Update(ctx, taskID, uid, req.Title, req.Date, req.Completed); err {
    case nil:
        return okMsg(c, http.StatusOK, "task updated", nil)
    case repository.ErrNotFound:
        return fail(c, http.StatusNotFound, "task not found")
    case repository.ErrForbidden:
        return fail(c, http.StatusForbidden, "not your task")
    default:
        return fail(c, http.StatusInternalServerError, "could not update task")
    }
}

// Delete removes the caller's own task.
func (h *TaskHandler) Delete(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    taskID, err := pathID(c, "id")
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid task id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch err := h.Tasks.Delete(ctx, taskID, uid); err {
    case nil:
        return okMsg(c, http.StatusOK, "task deleted", nil)
    case repository.ErrNotFound:
        return fail(c, http.StatusNotFound, "task not found")
    case repository.ErrForbidden:
        return fail(c, http.StatusForbidden, "not your task")
    default:
        return fail(c, http.StatusInternalServerError, "could not delete task")
    }
}
