package domain

import "time"

// HistoryAction tags the kind of mutation a history entry records.
type HistoryAction string

const (
	HistoryActionCreated         HistoryAction = "created"
	HistoryActionAssigned        HistoryAction = "assigned"
	HistoryActionReassigned      HistoryAction = "reassigned"
	HistoryActionUnassigned      HistoryAction = "unassigned"
	HistoryActionEscalated       HistoryAction = "escalated"
	HistoryActionStatusChanged   HistoryAction = "status_changed"
	HistoryActionSeverityChanged HistoryAction = "severity_changed"
	HistoryActionComment         HistoryAction = "comment"
)

// HistoryEntry is an immutable audit record, one row per meaningful
// mutation. From/to snapshots are only populated for dimensions that
// actually changed. Entries are never updated or deleted.
type HistoryEntry struct {
	ID             int64
	CaseID         int64
	ActorID        int64
	Action         HistoryAction
	FromStatusID   *int64
	ToStatusID     *int64
	FromSeverityID *int64
	ToSeverityID   *int64
	FromAreaID     *int64
	ToAreaID       *int64
	FromAssigneeID *int64
	ToAssigneeID   *int64
	Note           *string
	Internal       bool
	CreatedAt      time.Time
}
