package storage

import "errors"

// Sentinel errors shared by all store implementations. Scenarios, runs and
// outcome samples are immutable once written, so a key collision is always
// an insert error, never an update.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists.
	ErrDuplicateKey = errors.New("duplicate key: records are immutable once written")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
