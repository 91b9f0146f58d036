package services

import "errors"

var (
	// ErrValidation covers malformed or missing input: bad document
	// checksums, out-of-range quantities, positional mismatches.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned both when an entity is truly absent and when
	// it exists but belongs to another owner, so existence never leaks.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers state that forbids the operation: order already
	// completed, tickets already sold, insufficient inventory.
	ErrConflict = errors.New("conflict")

	// ErrConfiguration is fatal misconfiguration, such as a missing signing
	// secret. It is never silently substituted with a default.
	ErrConfiguration = errors.New("configuration error")
)
