package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType enumerates the auditable event kinds.
type ActivityType string

const (
	ActivityLogin      ActivityType = "login"
	ActivityLogout     ActivityType = "logout"
	ActivityCreateTask ActivityType = "create_task"
	ActivityUpdateTask ActivityType = "update_task"
	ActivityDeleteTask ActivityType = "delete_task"
	ActivityCreateUser ActivityType = "create_user"
	ActivityUpdateUser ActivityType = "update_user"
	ActivityDeleteUser ActivityType = "delete_user"
	ActivityComment    ActivityType = "comment"
)

// Valid reports whether the activity type is one of the known values.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLogin, ActivityLogout, ActivityCreateTask, ActivityUpdateTask,
		ActivityDeleteTask, ActivityCreateUser, ActivityUpdateUser,
		ActivityDeleteUser, ActivityComment:
		return true
	}
	return false
}

// ActivityLog is an append-only audit record. Rows are never updated or
// removed once written.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Type         ActivityType      `gorm:"size:32;not null;index" json:"type"`
	ActorID      uint              `gorm:"not null;index" json:"actor_id"`
	TargetUserID *uint             `json:"target_user_id"`
	TargetTaskID *uint             `json:"target_task_id"`
	Description  string            `gorm:"size:500;not null" json:"description"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}
