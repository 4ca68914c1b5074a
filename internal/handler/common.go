package handler // handler defines http handlers

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"
)

// envelope is the uniform response shape: {success, message?, data?}.
type envelope struct {
    Success bool   `json:"success"`
    Message string `json:"message,omitempty"`
    Data    any    `json:"data,omitempty"`
}

// ok writes a successful envelope with data.
func ok(c echo.Context, status int, data any) error {
    return c.JSON(status, envelope{Success: true, Data: data})
}

// okMsg writes a successful envelope with a human-readable message.
func okMsg(c echo.Context, status int, msg string, data any) error {
    return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// fail writes a failed envelope with a human-readable message.
func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, envelope{Success: false, Message: msg})
}

// getUserID extracts the authenticated user's ID placed in context by the
// JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    if id, ok := v.(uint64); ok && id != 0 {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}
