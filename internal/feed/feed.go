// Package feed provides real-time event delivery to connected clients.
package feed

import (
	"encoding/json"

	"moodboard/internal/models"
	"moodboard/internal/observability"
)

// Event types published over the feed.
const (
	EventVibePosted    = "vibe_posted"
	EventVibeUpdated   = "vibe_updated"
	EventVibeDeleted   = "vibe_deleted"
	EventNotification  = "notification"
	EventCommunityPost = "community_post"
)

// Event is one message delivered to feed subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode serializes the event for the wire and records its metric.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	observability.RecordFeedEvent(e.Type)
	return string(b), nil
}

// VibeEvent builds a vibe lifecycle event.
func VibeEvent(eventType string, vibe *models.Vibe) Event {
	return Event{Type: eventType, Payload: vibe}
}

// NotificationEvent builds a per-user notification event.
func NotificationEvent(n *models.Notification) Event {
	return Event{Type: EventNotification, Payload: n}
}
