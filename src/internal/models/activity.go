package models

import "time"

// PresenceEvent is published whenever a user's presence changes
type PresenceEvent struct {
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	ServiceName string    `json:"service_name"`
	TTLSeconds  int64     `json:"ttl_seconds,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Presence action constants
const (
	ActionOnline    = "online"
	ActionOffline   = "offline"
	ActionRefreshed = "refreshed"
	ActionRemoved   = "removed"
)

// Service name constants
const (
	ServiceSessionManagement = "presence.session"
	ServiceLoginSession      = "presence.loginsession"
)
