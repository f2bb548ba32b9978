package models

import "errors"

var (
	// ErrNotFound is wrapped by lookups that match no row for the caller.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by input checks that fail before any I/O.
	ErrValidation = errors.New("validation failed")
)
