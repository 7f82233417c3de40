package bus

import (
	"fmt"
	"strings"
)

// Topic schema for the orchestrator platform.
//
// Every topic has exactly three parts: orchestrator/{category}/{id}
// where category is one of cmd, data, or status and id is an
// alphanumeric identifier (underscores allowed).
const (
	// TopicPrefix is the root of all orchestrator topics.
	TopicPrefix = "orchestrator"

	// topicParts is the required number of segments in a valid topic.
	topicParts = 3
)

// TopicType classifies a topic by its middle segment.
type TopicType string

const (
	// TopicCommand identifies command topics (orchestrator/cmd/...).
	TopicCommand TopicType = "cmd"

	// TopicData identifies telemetry topics (orchestrator/data/...).
	TopicData TopicType = "data"

	// TopicStatus identifies status topics (orchestrator/status/...).
	TopicStatus TopicType = "status"
)

// ValidateTopic reports whether a topic follows the orchestrator schema.
//
// Valid shapes:
//
//	orchestrator/cmd/<id>
//	orchestrator/data/<id>
//	orchestrator/status/<id>
//
// where <id> matches [A-Za-z0-9_]+.
func ValidateTopic(topic string) bool {
	parts := strings.Split(topic, "/")
	if len(parts) != topicParts {
		return false
	}
	if parts[0] != TopicPrefix {
		return false
	}
	switch TopicType(parts[1]) {
	case TopicCommand, TopicData, TopicStatus:
	default:
		return false
	}
	return validID(parts[2])
}

// GetTopicType returns the type of a valid topic, or "" if the topic
// does not follow the schema.
func GetTopicType(topic string) TopicType {
	if !ValidateTopic(topic) {
		return ""
	}
	parts := strings.Split(topic, "/")
	return TopicType(parts[1])
}

// validID reports whether s is a non-empty run of [A-Za-z0-9_].
func validID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// Topics provides builders for orchestrator MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := bus.Topics{}
//	estop := topics.Command("estop")
//	// Returns: "orchestrator/cmd/estop"
type Topics struct{}

// Command returns the command topic for a target.
//
// Example: orchestrator/cmd/estop
func (Topics) Command(id string) string {
	return fmt.Sprintf("%s/cmd/%s", TopicPrefix, id)
}

// Data returns the telemetry topic for a sensor or device.
//
// Example: orchestrator/data/left_encoder
func (Topics) Data(id string) string {
	return fmt.Sprintf("%s/data/%s", TopicPrefix, id)
}

// Status returns the status topic for a service.
//
// Example: orchestrator/status/safety_monitor
func (Topics) Status(id string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, id)
}

// AllCommands returns a pattern matching all command topics.
//
// Pattern: orchestrator/cmd/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/cmd/+", TopicPrefix)
}

// AllData returns a pattern matching all telemetry topics.
//
// Pattern: orchestrator/data/+
func (Topics) AllData() string {
	return fmt.Sprintf("%s/data/+", TopicPrefix)
}

// AllStatus returns a pattern matching all status topics.
//
// Pattern: orchestrator/status/+
func (Topics) AllStatus() string {
	return fmt.Sprintf("%s/status/+", TopicPrefix)
}

// AllTopics returns a pattern matching all orchestrator topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: orchestrator/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
