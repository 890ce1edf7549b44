package repositories

import "errors"

var (
	// ErrNotFound is returned when an addressed row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness invariant
	ErrConflict = errors.New("conflict")
)
