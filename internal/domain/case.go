package domain

import "time"

// CaseKind distinguishes the two parallel case domains.
type CaseKind string

const (
	CaseKindTicket   CaseKind = "ticket"
	CaseKindIncident CaseKind = "incident"
)

// Case is the aggregate shared by tickets and incidents. Classification
// fields reference configurable catalog rows, never compiled constants.
type Case struct {
	ID             int64
	Kind           CaseKind
	TypeID         int64
	SeverityID     int64
	StatusID       int64
	AreaOriginID   int64
	AreaCurrentID  int64
	SiteID         int64
	SubLocationID  *int64
	RequesterID    int64
	AssignedUserID *int64
	AssignedAt     *time.Time
	DueAt          time.Time
	Subject        string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// Assigned reports whether the case currently has an assignee.
func (c *Case) Assigned() bool {
	return c.AssignedUserID != nil
}

// AssignedTo reports whether userID is the current assignee.
func (c *Case) AssignedTo(userID int64) bool {
	return c.AssignedUserID != nil && *c.AssignedUserID == userID
}
