// Package repository holds the errors shared by every record repository.
package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
	// ErrConflict is returned when a conditional write loses to a concurrent one
	// or its precondition does not hold.
	ErrConflict = errors.New("conditional write failed")
	// ErrSkip may be returned by a mutation func to leave the record untouched.
	ErrSkip = errors.New("no change")
)

// MaxUpdateAttempts bounds optimistic read-modify-write retries.
const MaxUpdateAttempts = 5
