// Package repository implements data access over MySQL. The sentinel
// errors here let handlers distinguish failure scenarios: ErrNotFound
// maps to HTTP 404, ErrConflict to 409 (duplicate menu name, cancelling
// an already-terminal reservation, and similar state clashes).
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting existing state.
var ErrConflict = errors.New("conflict")
