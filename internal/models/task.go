package models

import "time"

// TaskStatus enumerates the lifecycle states of a task. Every state is
// reachable from every other; there are no forbidden transitions.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority enumerates task urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether the priority is one of the known values.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of work assigned to a member. AssignedToID is required at
// creation but becomes nil when the assignee is soft-deleted.
type Task struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Title        string        `gorm:"size:200;not null" json:"title"`
	Description  string        `gorm:"size:1000" json:"description"`
	Status       TaskStatus    `gorm:"size:32;not null;index" json:"status"`
	Priority     TaskPriority  `gorm:"size:32;not null;index" json:"priority"`
	AssignedToID *uint         `gorm:"index" json:"assigned_to_id"`
	CreatedByID  uint          `gorm:"not null;index" json:"created_by_id"`
	DueDate      *time.Time    `json:"due_date"`
	CompletedAt  *time.Time    `json:"completed_at"`
	Comments     []TaskComment `gorm:"constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TaskComment is an ordered note appended to a task.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Text      string    `gorm:"size:500;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
