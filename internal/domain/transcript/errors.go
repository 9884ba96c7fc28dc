package transcript

import "errors"

var (
	// ErrNotFound indicates the record doesn't exist.
	ErrNotFound = errors.New("transcript not found")
	// ErrDuplicate indicates a record with the same natural key already exists.
	ErrDuplicate = errors.New("transcript already recorded")
	// ErrSecretMismatch indicates the supplied view secret is wrong.
	ErrSecretMismatch = errors.New("view secret mismatch")
	// ErrInvalidInput indicates invalid input for transcript operations.
	ErrInvalidInput = errors.New("invalid transcript input")
)
