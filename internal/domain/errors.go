package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database or has been soft-deleted.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input is malformed
// (e.g. negative cargo weight, blank cancel reason) before any row is read.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidState is returned when a business rule rejects an operation on an
// otherwise existing entity: a vehicle that is not available, an expired
// driver license, an overweight cargo. Retrying without changing the input
// will fail again. Handlers should map this to HTTP 400.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict is returned when a vehicle or driver is already allocated to an
// active trip, or when the database aborted the transaction because of a
// competing writer. Callers may retry once the conflicting trip resolves.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
