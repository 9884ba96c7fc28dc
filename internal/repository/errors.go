package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert hits the natural-key constraint.
	// Callers treat it as "another delivery got there first".
	ErrDuplicate = errors.New("duplicate: natural key already stored")
)
