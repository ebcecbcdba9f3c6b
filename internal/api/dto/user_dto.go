package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse wraps token issuance.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the caller's own profile.
type UserResponse struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	AreaID       *int64               `json:"area_id"`
	Capabilities domain.PermissionSet `json:"capabilities"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// NotificationResponse is one inbox row.
type NotificationResponse struct {
	ID        int64                `json:"id"`
	Message   string               `json:"message"`
	CaseKind  domain.CaseKind      `json:"case_kind"`
	CaseID    int64                `json:"case_id"`
	Action    domain.HistoryAction `json:"action"`
	Read      bool                 `json:"read"`
	CreatedAt time.Time            `json:"created_at"`
}
