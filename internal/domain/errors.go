package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing destination, unknown category).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a compare-and-swap write finds the stored value
// no longer matches the caller's last-known value (stale favorite toggle).
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrUnauthenticated is returned when an operation requires an owner but the
// session carries none, or the session token is invalid or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrInvalidCredentials is returned by login when the email/password pair does
// not match a stored owner. The message is shown to users verbatim.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned by signup when an owner with that email exists.
var ErrEmailTaken = errors.New("email already in use")
