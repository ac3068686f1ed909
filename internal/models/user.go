package models

import "time"

// Role classifies a user within the three-tier hierarchy.
type Role string

// Known roles, from least to most privileged.
const (
	RoleMember     Role = "member"
	RoleLeader     Role = "leader"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLeader, RoleSuperadmin:
		return true
	}
	return false
}

// User represents an account in the organisational hierarchy. Members carry a
// reference to their leader; leaders and superadmins do not.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"size:128;not null" json:"-"`
	FullName         string     `gorm:"size:255;not null" json:"full_name"`
	Role             Role       `gorm:"size:32;not null;index" json:"role"`
	AssignedLeaderID *uint      `gorm:"index" json:"assigned_leader_id"`
	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedByID      *uint      `json:"created_by_id"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
