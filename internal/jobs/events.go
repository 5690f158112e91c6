package jobs

import "time"

// Event is a job status transition, published to subscribers such as MQTT.
// Ramp ticks do not produce events; only stage changes do.
type Event struct {
	JobID     string    `json:"task_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublishFunc is a callback for publishing job events.
type EventPublishFunc func(Event)
