package domain

import "time"

// GrantReason explains why an area gained access to a case.
type GrantReason string

const (
	GrantReasonCreated   GrantReason = "created"
	GrantReasonEscalated GrantReason = "escalated"
)

// AreaAccessGrant links a case to every area that has ever owned or
// touched it. Writes are best-effort: a failed grant never fails the
// parent operation.
type AreaAccessGrant struct {
	ID        int64
	CaseID    int64
	AreaID    int64
	Reason    GrantReason
	CreatedAt time.Time
}
