package events

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated      EventType = "case_created"
	EventCaseAssigned     EventType = "case_assigned"
	EventCaseUnassigned   EventType = "case_unassigned"
	EventCaseEscalated    EventType = "case_escalated"
	EventCaseStateChanged EventType = "case_state_changed"
	EventCaseCommented    EventType = "case_commented"
)

// Event represents a domain event emitted by the workflow engine after
// the transition is durable.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Kind      domain.CaseKind `json:"kind"`
	CaseID    int64           `json:"case_id"`
	ActorID   int64           `json:"actor_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// TransitionPayload carries the fan-out computed by the engine: the
// action taken, recipients to notify and the human-readable message.
type TransitionPayload struct {
	Action       domain.HistoryAction `json:"action"`
	RecipientIDs []int64              `json:"recipient_ids"`
	Message      string               `json:"message"`
}
