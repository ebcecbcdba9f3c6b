package domain

import "time"

// Notification is an inbox row written by the dispatcher. Delivery is
// best-effort; a failed write is logged, never surfaced.
type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	CaseKind  CaseKind
	CaseID    int64
	Action    HistoryAction
	Read      bool
	CreatedAt time.Time
}
