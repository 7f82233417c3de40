package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for bus messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a JSON message to the specified topic.
//
// The topic must follow the orchestrator three-part schema; invalid topics
// fail fast with ErrInvalidTopic and are never retried. The payload is
// serialized to JSON and must be a JSON object; a top-level "timestamp"
// field (RFC3339) is injected if the caller omitted one.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "orchestrator/cmd/estop")
//   - payload: A struct or map serializable to a JSON object
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrInvalidPayload,
//     ErrNotConnected, or a wrapped ErrPublishFailed
func (c *Client) Publish(topic string, payload any, qos byte, retained bool) error {
	if !ValidateTopic(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if len(data) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(data), maxPayloadSize)
	}

	token := c.client.Publish(topic, qos, retained, data)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// encodePayload serializes a payload to a JSON object, injecting a
// top-level "timestamp" field if absent.
func encodePayload(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, ErrInvalidPayload
	}

	if _, ok := obj["timestamp"]; !ok {
		obj["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
		raw, err = json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	return raw, nil
}
