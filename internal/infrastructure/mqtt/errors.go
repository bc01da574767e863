package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when publishing without a live connection.
	// Callers must EnsureConnected first.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectFailed is returned when a connection attempt fails.
	ErrConnectFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when the broker rejects a publish or
	// the transport fails mid-publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrTimeout is returned when a connect or publish exceeds its bound.
	// The underlying paho operation is abandoned, not cancelled: the
	// transport may still complete in the background.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
