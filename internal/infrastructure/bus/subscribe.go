package bus

import (
	"fmt"
)

// Subscribe registers a handler for messages matching the topic pattern.
//
// Patterns can include MQTT wildcards:
//   - + (single-level): "orchestrator/data/+" matches any sensor topic
//   - # (multi-level, trailing): "orchestrator/#" matches all orchestrator topics
//
// Every inbound message is evaluated against all registered patterns;
// a message matching several patterns invokes each handler once.
// Subscriptions are automatically restored if the connection is lost and
// reconnected (tracked internally).
//
// Parameters:
//   - pattern: The topic pattern to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback invoked for each matching message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(pattern string, qos byte, handler Handler) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidTopic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track registration for dispatch and reconnection restoration.
	c.subMu.Lock()
	c.subscriptions[pattern] = subscription{
		pattern: pattern,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	// A nil paho callback routes matching messages through the default
	// publish handler, where dispatch fans out across all registered
	// patterns exactly once per message.
	token := c.client.Subscribe(pattern, qos, nil)
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.subMu.Lock()
		delete(c.subscriptions, pattern)
		c.subMu.Unlock()
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.subMu.Lock()
		delete(c.subscriptions, pattern)
		c.subMu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// Unsubscribe removes a registration and stops receiving messages for a pattern.
//
// After unsubscribing, the handler will no longer be called for new messages
// matching this pattern. Any messages in flight may still be delivered.
//
// Parameters:
//   - pattern: The exact pattern that was subscribed to
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Unsubscribe(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidTopic)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, pattern)
	c.subMu.Unlock()

	token := c.client.Unsubscribe(pattern)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of registered patterns.
//
// This can be useful for monitoring and debugging.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a registration exists for the given pattern.
//
// Note: This checks only the exact pattern string, not pattern matching.
func (c *Client) HasSubscription(pattern string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[pattern]
	return exists
}
