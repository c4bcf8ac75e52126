// Package realtime carries live events to connected websocket clients.
//
// Producers publish an event to a named group through a Publisher. With a
// Redis or NATS backend every instance runs a bridge that replays the shared
// stream into its local Hub, so a client connected to any instance receives
// events produced anywhere. Delivery is at-most-once.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
)

const SiteGroup = "site_global"

func NotificationsGroup(userID int64) string {
	return "notifications_" + strconv.FormatInt(userID, 10)
}

type Publisher interface {
	Publish(ctx context.Context, group string, ev models.Event) error
}

// envelope is the wire shape shared by the Redis and NATS backends.
type envelope struct {
	Group string       `json:"group"`
	Event models.Event `json:"event"`
}

func encodeEnvelope(group string, ev models.Event) ([]byte, error) {
	body, err := json.Marshal(envelope{Group: group, Event: ev})
	if err != nil {
		return nil, fmt.Errorf("failed to encode realtime envelope: %w", err)
	}
	return body, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode realtime envelope: %w", err)
	}
	if env.Group == "" || env.Event.Type == "" {
		return envelope{}, fmt.Errorf("realtime envelope missing group or type")
	}
	return env, nil
}
