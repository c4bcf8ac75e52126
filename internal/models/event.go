package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOnlineUsers    = "online_users"
	EventHeaderCounters = "header_counters"
)

// Event is the envelope pushed to realtime groups. Consumers dispatch on Type.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:      uuid.New(),
		Type:    eventType,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
}
