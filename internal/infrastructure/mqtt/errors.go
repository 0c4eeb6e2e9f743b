package mqtt

import "errors"

// Sentinel errors for broker operations. Timeouts and broker-side failures
// are wrapped into the relevant operation sentinel, so errors.Is works on
// all of these.
var (
	// ErrNotConnected means an operation ran on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps publish timeouts and oversized payloads.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps subscribe timeouts and broker rejections.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps unsubscribe timeouts and broker rejections.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS means a QoS level outside 0, 1, 2 was requested.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic means an empty topic was provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
