package mqtt

import "fmt"

const (
	DefaultCommandTopic = "esp32/test"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

func TopicStatus(clientID string) string {
	return fmt.Sprintf("voicebutton/%s/status", clientID)
}
