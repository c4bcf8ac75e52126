package models

import "time"

type PresenceEntry struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	LastSeen time.Time `json:"last_seen"`
}
