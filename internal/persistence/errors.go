package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when inserting a record whose identity already exists.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when stored data would violate a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
