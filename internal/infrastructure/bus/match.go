package bus

import "strings"

// MatchTopic reports whether a concrete topic matches a subscription pattern.
//
// Matching rules (MQTT semantics, restricted to the orchestrator usage):
//   - An exact pattern matches only itself.
//   - "+" matches exactly one segment; segment counts must be equal and
//     every other pattern segment must equal the topic segment.
//   - A trailing "#" matches any topic that starts with the pattern's
//     literal prefix, regardless of remaining depth.
func MatchTopic(topic, pattern string) bool {
	if topic == pattern {
		return true
	}

	// Multi-level wildcard: match on the literal prefix.
	if strings.HasSuffix(pattern, "#") {
		prefix := strings.TrimSuffix(pattern, "#")
		return strings.HasPrefix(topic, prefix)
	}

	topicParts := strings.Split(topic, "/")
	patternParts := strings.Split(pattern, "/")

	if len(topicParts) != len(patternParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "+" {
			continue
		}
		if pp != topicParts[i] {
			return false
		}
	}

	return true
}
