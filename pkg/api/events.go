package api

import "time"

// EventType identifies an action journal event.
type EventType string

const (
	EventActionStarted   EventType = "action.started"
	EventActionCompleted EventType = "action.completed"
	EventActionFailed    EventType = "action.failed"

	EventItemStarted   EventType = "item.started"
	EventItemCompleted EventType = "item.completed"
	EventItemFailed    EventType = "item.failed"
	EventItemCached    EventType = "item.cached"
)

// ActionEvent is a minimal append-only history record for audit/debugging.
type ActionEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	// Optional context.
	Action  string
	ISAName string
	Item    int

	// Small, human-oriented details (e.g. item name, error string).
	// Keep this low-volume: do NOT dump payloads or tool logs here.
	Detail string
}
