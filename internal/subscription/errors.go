package subscription

import "errors"

// Domain-specific errors for subscription operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when no subscription has the requested ID.
	ErrNotFound = errors.New("subscription: not found")

	// ErrDuplicateID is returned when adding a subscription whose ID is
	// already present. ID uniqueness is a hard invariant.
	ErrDuplicateID = errors.New("subscription: duplicate id")

	// ErrInvalid is returned when a subscription fails validation.
	ErrInvalid = errors.New("subscription: invalid")
)
