package dto

import (
	"time"

	"github.com/hivedesk/taskhub-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"omitempty,max=1000"`
	AssignedToID uint   `json:"assigned_to_id" validate:"required"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate      string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// TaskUpdateRequest is a partial patch; only present fields are applied.
type TaskUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in-progress completed cancelled"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// TaskListQuery captures query-string filters for the scoped task list.
type TaskListQuery struct {
	Status       string `validate:"omitempty,oneof=pending in-progress completed cancelled"`
	Priority     string `validate:"omitempty,oneof=low medium high urgent"`
	AssignedToID *uint
	Page         int `validate:"omitempty,min=1"`
	Limit        int `validate:"omitempty,min=1,max=100"`
}

// TaskCommentRequest describes the payload for appending a comment.
type TaskCommentRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// TaskCommentResponse is the serialized comment returned to API clients.
type TaskCommentResponse struct {
	ID        uint      `json:"id"`
	AuthorID  uint      `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskResponse is the serialized task returned to API clients and carried in
// realtime event payloads.
type TaskResponse struct {
	ID           uint                  `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       models.TaskStatus     `json:"status"`
	Priority     models.TaskPriority   `json:"priority"`
	AssignedToID *uint                 `json:"assigned_to_id"`
	CreatedByID  uint                  `json:"created_by_id"`
	DueDate      *time.Time            `json:"due_date"`
	CompletedAt  *time.Time            `json:"completed_at"`
	Comments     []TaskCommentResponse `json:"comments,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TaskListResponse is a scoped task page.
type TaskListResponse struct {
	Tasks       []TaskResponse `json:"tasks"`
	Total       int64          `json:"total"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
}

// NewTaskCommentResponse converts a comment model into a DTO.
func NewTaskCommentResponse(model models.TaskComment) TaskCommentResponse {
	return TaskCommentResponse{
		ID:        model.ID,
		AuthorID:  model.AuthorID,
		Text:      model.Text,
		CreatedAt: model.CreatedAt,
	}
}

// NewTaskResponse converts a model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	comments := make([]TaskCommentResponse, 0, len(model.Comments))
	for _, comment := range model.Comments {
		comments = append(comments, NewTaskCommentResponse(comment))
	}

	return TaskResponse{
		ID:           model.ID,
		Title:        model.Title,
		Description:  model.Description,
		Status:       model.Status,
		Priority:     model.Priority,
		AssignedToID: model.AssignedToID,
		CreatedByID:  model.CreatedByID,
		DueDate:      model.DueDate,
		CompletedAt:  model.CompletedAt,
		Comments:     comments,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts a slice of models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}

	return responses
}
