package lifecycle

import "errors"

// Sentinel errors for the booking API to map onto HTTP status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid input")
)
