package mqtt

import (
	"fmt"
	"strings"

	"voicebutton/internal/domain"
)

const maxTopicBytes = 65535

// ValidateTopic accepts a concrete publish topic: non-empty, no wildcards,
// no NUL, within the MQTT length limit.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("topic is empty")
	}
	if len(topic) > maxTopicBytes {
		return fmt.Errorf("topic too long: %d bytes", len(topic))
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("wildcards not allowed in publish topic: %s", topic)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("invalid topic: contains NUL")
	}
	return nil
}

// ParseCommandPayload decodes the wire form written by Dispatch: ASCII
// decimal digits only, no sign, no framing.
func ParseCommandPayload(payload []byte) (domain.CommandCode, error) {
	if len(payload) == 0 || len(payload) > 2 {
		return 0, fmt.Errorf("invalid command payload %q", payload)
	}
	n := 0
	for _, b := range payload {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("invalid command payload %q", payload)
		}
		n = n*10 + int(b-'0')
	}
	code := domain.CommandCode(n)
	if !code.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCode, n)
	}
	return code, nil
}
