package api

import "errors"

// Sentinel errors shared across services. Services wrap them with context;
// handlers translate them to HTTP status codes via errors.Is.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrValidation      = errors.New("request validation failed")
)
