package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventStepStarted   EventType = "step_started"
	EventStepSucceeded EventType = "step_succeeded"
	EventStepFailed    EventType = "step_failed"
	EventRunSucceeded  EventType = "run_succeeded"
	EventRunFailed     EventType = "run_failed"
)

// Event represents a pipeline lifecycle event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh id and the current UTC time on an event of a run.
func NewEvent(eventType EventType, runID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Finished reports whether the event ends a run.
func (e Event) Finished() bool {
	return e.Type == EventRunSucceeded || e.Type == EventRunFailed
}

// StepPayload describes one step of one source.
type StepPayload struct {
	Source   string        `json:"source"`
	Step     string        `json:"step"`
	Rows     int           `json:"rows"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunPayload summarizes a whole run.
type RunPayload struct {
	Sources  []string      `json:"sources"`
	Steps    []StepPayload `json:"steps"`
	DryRun   bool          `json:"dry_run"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
	Error    string        `json:"error,omitempty"`
}
