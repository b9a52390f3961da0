package store

import "errors"

// Sentinel errors returned by store operations. Services translate
// these into user-facing coded errors at the resolver boundary.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a primary key or unique index conflict.
	// Concurrent writers racing on the same unique value see exactly one
	// success; the loser gets this error.
	ErrAlreadyExists = errors.New("already exists")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
