package realtime

import (
	"strconv"
	"time"
)

// Event names carried on meeting and user topics.
const (
	EventHostJoined   = "HOST_JOINED"
	EventHostLeft     = "HOST_LEFT"
	EventNotification = "notification"
)

// Event is the wire shape delivered to every subscriber of a topic.
type Event struct {
	Topic   string    `json:"topic"`
	Name    string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// MeetingTopic is the per-meeting channel name.
func MeetingTopic(meetingID string) string {
	return "meeting-" + meetingID
}

// UserTopic is the per-user channel name carrying notification events.
func UserTopic(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

// Publisher is the write side of the realtime channel. Delivery is
// fire-and-forget: publishing never blocks and never reports failure.
type Publisher interface {
	Publish(topic, name string, payload any)
}

// Subscriber is the read side. The returned cancel func detaches the
// subscription and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan Event, func())
}
