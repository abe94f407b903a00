package services

import "errors"

// Errors returned by the listing service. Handlers map them to HTTP status codes;
// anything else is treated as a store failure.
var (
	ErrInvalidID    = errors.New("invalid id")
	ErrMissingParam = errors.New("missing required parameter")
	ErrValidation   = errors.New("listing validation failed")
	ErrNotFound     = errors.New("listing not found")
)
