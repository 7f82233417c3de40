package bus

import "errors"

// Domain-specific errors for message bus operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("bus: client not connected")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("bus: connection failed")

	// ErrInvalidTopic is returned when a topic does not match the
	// orchestrator three-part schema (cmd/data/status).
	ErrInvalidTopic = errors.New("bus: invalid topic")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("bus: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidPayload is returned when a payload cannot be serialized
	// to a JSON object.
	ErrInvalidPayload = errors.New("bus: payload must be a JSON object")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("bus: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("bus: subscribe failed")

	// ErrUnsubscribeFailed is returned when an unsubscribe operation fails.
	ErrUnsubscribeFailed = errors.New("bus: unsubscribe failed")
)
