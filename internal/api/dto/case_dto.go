package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	TypeID        int64      `json:"type_id"`
	SeverityID    int64      `json:"severity_id"`
	AreaID        *int64     `json:"area_id"`
	SiteID        int64      `json:"site_id"`
	SubLocationID *int64     `json:"sub_location_id"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	DueAt         *time.Time `json:"due_at"`
}

// UpdateCaseRequest is the PATCH payload; absent fields stay untouched.
type UpdateCaseRequest struct {
	StatusID   *int64  `json:"status_id"`
	SeverityID *int64  `json:"severity_id"`
	AreaID     *int64  `json:"area_id"`
	Note       *string `json:"note"`
	Internal   bool    `json:"internal"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssignedUserID int64 `json:"assigned_user_id"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	AreaID int64  `json:"area_id"`
	Note   string `json:"note"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// CaseSummary response.
type CaseSummary struct {
	ID             int64           `json:"id"`
	Kind           domain.CaseKind `json:"kind"`
	TypeID         int64           `json:"type_id"`
	SeverityID     int64           `json:"severity_id"`
	StatusID       int64           `json:"status_id"`
	AreaCurrentID  int64           `json:"area_id"`
	SiteID         int64           `json:"site_id"`
	SubLocationID  *int64          `json:"sub_location_id"`
	RequesterID    int64           `json:"requester_id"`
	AssignedUserID *int64          `json:"assigned_user_id"`
	Subject        string          `json:"subject"`
	DueAt          time.Time       `json:"due_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ClosedAt       *time.Time      `json:"closed_at"`
	Abilities      authz.Abilities `json:"abilities"`
}

// CaseDetailResponse provides full case info.
type CaseDetailResponse struct {
	CaseSummary
	AreaOriginID int64                  `json:"area_origin_id"`
	Description  string                 `json:"description"`
	AssignedAt   *time.Time             `json:"assigned_at"`
	History      []HistoryEntryResponse `json:"history"`
	Attachments  []AttachmentResponse   `json:"attachments"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID             int64                `json:"id"`
	Action         domain.HistoryAction `json:"action"`
	ActorID        int64                `json:"actor_id"`
	FromStatusID   *int64               `json:"from_status_id,omitempty"`
	ToStatusID     *int64               `json:"to_status_id,omitempty"`
	FromSeverityID *int64               `json:"from_severity_id,omitempty"`
	ToSeverityID   *int64               `json:"to_severity_id,omitempty"`
	FromAreaID     *int64               `json:"from_area_id,omitempty"`
	ToAreaID       *int64               `json:"to_area_id,omitempty"`
	FromAssigneeID *int64               `json:"from_assignee_id,omitempty"`
	ToAssigneeID   *int64               `json:"to_assignee_id,omitempty"`
	Note           *string              `json:"note,omitempty"`
	Internal       bool                 `json:"internal"`
	CreatedAt      time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	UploaderID int64     `json:"uploader_id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// PageMeta describes a result page.
type PageMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}
