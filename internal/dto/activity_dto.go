package dto

import (
	"time"

	"github.com/hivedesk/taskhub-api/internal/models"
)

// ActivityListQuery captures query-string filters for the scoped audit trail.
type ActivityListQuery struct {
	Type    string `validate:"omitempty,oneof=login logout create_task update_task delete_task create_user update_user delete_user comment"`
	ActorID *uint
	Page    int `validate:"omitempty,min=1"`
	Limit   int `validate:"omitempty,min=1,max=100"`
}

// ActivityResponse is the serialized audit record returned to API clients.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	Type         models.ActivityType    `json:"type"`
	ActorID      uint                   `json:"actor_id"`
	TargetUserID *uint                  `json:"target_user_id"`
	TargetTaskID *uint                  `json:"target_task_id"`
	Description  string                 `json:"description"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse is a scoped page of audit records.
type ActivityListResponse struct {
	Activities  []ActivityResponse `json:"activities"`
	Total       int64              `json:"total"`
	TotalPages  int                `json:"total_pages"`
	CurrentPage int                `json:"current_page"`
}

// NewActivityResponse converts a model into a DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:           model.ID,
		Type:         model.Type,
		ActorID:      model.ActorID,
		TargetUserID: model.TargetUserID,
		TargetTaskID: model.TargetTaskID,
		Description:  model.Description,
		Metadata:     model.Metadata,
		CreatedAt:    model.CreatedAt,
	}
}

// NewActivityResponseSlice converts a slice of models into DTOs.
func NewActivityResponseSlice(entries []models.ActivityLog) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewActivityResponse(entry))
	}

	return responses
}
