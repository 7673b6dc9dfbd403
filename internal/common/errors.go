package common

import (
	"errors"
	"fmt"
)

// Callers should use errors.Is to match these values; most of them are
// returned wrapped with a human-readable reason.
var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")

	// ErrRefreshTokenMismatch is returned when a cryptographically valid
	// refresh token is not the one currently stored for its principal.
	// It always wraps ErrUnauthorized.
	ErrRefreshTokenMismatch = fmt.Errorf("refresh token mismatch: %w", ErrUnauthorized)
)
