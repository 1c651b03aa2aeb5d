// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios.
package repository

import "errors"

// ErrUsernameTaken is returned when a user cannot be created because the
// username is already registered. Handlers should translate this into an
// HTTP 400 response.
var ErrUsernameTaken = errors.New("username already taken")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as taking a task that already has an executor.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
