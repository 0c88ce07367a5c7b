package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any persistence call.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a ledger, goal, plan or recipe that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a failed read or write against the backing store.
	ErrPersistence = errors.New("persistence failure")

	// ErrConflict marks a create that collided with an existing document or a
	// write that kept losing the optimistic race.
	ErrConflict = errors.New("conflict")
)

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a store failure for the named operation. Both ErrPersistence
// and the underlying cause stay reachable through errors.Is.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
