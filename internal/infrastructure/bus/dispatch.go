package bus

import (
	"encoding/json"
	"time"
)

// Message is one inbound bus message as delivered to handlers.
type Message struct {
	// Topic is the concrete topic the message arrived on.
	Topic string

	// Payload is the raw JSON payload.
	Payload []byte

	// QoS is the delivery QoS level (0, 1, or 2).
	QoS byte

	// Retained indicates the broker delivered a retained message.
	Retained bool

	// ReceivedAt is when the client received the message.
	ReceivedAt time.Time
}

// Handler is the callback signature for received messages.
//
// Handlers run on the dispatch path: they must be fast and non-blocking,
// since a slow handler delays delivery to every other subscriber.
//
// Returns:
//   - error: Logged but does not affect delivery to other handlers
type Handler func(msg Message) error

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// dispatch routes one inbound message to every registered pattern that
// matches its topic. Invalid topics and non-JSON payloads are dropped with
// a log entry. A handler that errors or panics never prevents delivery to
// the remaining handlers.
func (c *Client) dispatch(topic string, payload []byte, qos byte, retained bool) {
	if !ValidateTopic(topic) {
		c.logWarn("dropping message on invalid topic", "topic", topic)
		return
	}

	if !json.Valid(payload) {
		c.logError("dropping message with malformed JSON payload", "topic", topic)
		return
	}

	msg := Message{
		Topic:      topic,
		Payload:    payload,
		QoS:        qos,
		Retained:   retained,
		ReceivedAt: time.Now(),
	}

	c.subMu.RLock()
	matched := make([]subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		if MatchTopic(topic, sub.pattern) {
			matched = append(matched, sub)
		}
	}
	c.subMu.RUnlock()

	for _, sub := range matched {
		c.invokeHandler(sub, msg)
	}
}

// invokeHandler runs one handler with panic recovery.
func (c *Client) invokeHandler(sub subscription, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("message handler panic recovered",
				"pattern", sub.pattern,
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()

	if err := sub.handler(msg); err != nil {
		c.logWarn("message handler returned error",
			"pattern", sub.pattern,
			"topic", msg.Topic,
			"error", err,
		)
	}
}
