package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is an actor: requester, assignee or operator depending on the
// capabilities granted to it. AreaID bounds area-scoped capabilities.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	AreaID       *int64
	Status       UserStatus
	Permissions  PermissionSet
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InArea reports whether the user belongs to the given area.
func (u *User) InArea(areaID int64) bool {
	return u.AreaID != nil && *u.AreaID == areaID
}
