// Package audit delivers audit events to external sinks without ever
// blocking or failing the operation that produced them.
package audit

import "time"

// Trip lifecycle actions.
const (
	ActionTripCreated    = "TRIP_CREATED"
	ActionTripDispatched = "TRIP_DISPATCHED"
	ActionTripStarted    = "TRIP_STARTED"
	ActionTripCompleted  = "TRIP_COMPLETED"
	ActionTripCancelled  = "TRIP_CANCELLED"
)

// Event is one audit record as handed to a Sink.
type Event struct {
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
