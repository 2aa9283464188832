// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the caller may not touch the
// target record, while ErrConflict signals that an operation cannot
// proceed because of existing dependent records (e.g. deleting a ship
// that still has role slots).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a record it is not allowed to change. Handlers should translate
// this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of referencing records. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNoChange indicates the UPDATE attempted to set fields equal to current values.
var ErrNoChange = errors.New("no change")

// ErrInvalid is returned for payloads that fail validation before reaching
// the database.  The wrapped message names the offending field.
var ErrInvalid = errors.New("invalid input")
