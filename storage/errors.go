package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an individual is not found.
	ErrNotFound = errors.New("individual not found")

	// ErrEmptyURI is returned when a lookup is attempted without an individual URI.
	ErrEmptyURI = errors.New("individual URI is empty")
)
