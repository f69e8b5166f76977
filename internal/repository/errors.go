package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrMalformedRecord is returned when a stored record cannot be decoded
	// or fails validation.
	ErrMalformedRecord = errors.New("malformed record")
)
