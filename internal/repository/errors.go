// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting database driver errors. For example, ErrForbidden indicates
// that the current user is not authorized to operate on a resource owned
// by someone else, while ErrAlreadyConnected signals that a connection
// request cannot be created because the pair is already linked.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when the addressed row does not exist.
// Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned on signup when a verified user already holds
// the requested email address. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyPending is returned when a connection request for a pair is
// still awaiting a response. Handlers translate this into HTTP 409.
var ErrAlreadyPending = errors.New("request already sent")

// ErrAlreadyConnected is returned when the pair already has an accepted
// connection. Handlers translate this into HTTP 409.
var ErrAlreadyConnected = errors.New("already connected")

// ErrNotPending is returned when a state transition is attempted on a
// request that has already left the pending state.
var ErrNotPending = errors.New("request is not pending")
