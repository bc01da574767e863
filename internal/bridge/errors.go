package bridge

import "errors"

var (
	// ErrClosed is returned by engine operations after Close.
	ErrClosed = errors.New("bridge: engine closed")

	// ErrNotPromotable is returned when promoting an event that is not a
	// characteristic update with a complete accessory/characteristic pair.
	ErrNotPromotable = errors.New("bridge: event cannot be promoted to a subscription")
)
