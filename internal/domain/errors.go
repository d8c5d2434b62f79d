package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLogClass is returned when no LogClassConfig is registered under a name
	ErrUnknownLogClass = errors.New("unknown log class")

	// ErrCursorMismatch is returned when a manual cursor no longer matches the file
	ErrCursorMismatch = errors.New("cursor fingerprint mismatch")

	// ErrInvalidCursor is returned for malformed tokens or a cursor of the wrong backend
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidRequest is returned for out-of-range request parameters
	ErrInvalidRequest = errors.New("invalid request")

	// ErrJournalUnavailable is returned when the binary was built without journal support
	ErrJournalUnavailable = errors.New("journal backend unavailable")
)

// CursorMismatchError describes why a manual cursor was rejected
type CursorMismatchError struct {
	Path     string
	Offset   uint64
	Reason   string
	Expected string
	Actual   string
}

func (e *CursorMismatchError) Error() string {
	return fmt.Sprintf("cursor fingerprint mismatch for %s at offset %d: %s (expected %q, got %q)",
		e.Path, e.Offset, e.Reason, e.Expected, e.Actual)
}

// Unwrap lets errors.Is match ErrCursorMismatch
func (e *CursorMismatchError) Unwrap() error {
	return ErrCursorMismatch
}
