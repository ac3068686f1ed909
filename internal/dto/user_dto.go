package dto

import (
	"time"

	"github.com/hivedesk/taskhub-api/internal/models"
)

// UserCreateRequest describes the payload for creating a user. The
// assigned_leader_id is ignored when the actor is a leader; the new user is
// force-assigned to that leader.
type UserCreateRequest struct {
	Username         string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FullName         string `json:"full_name" validate:"required,max=255"`
	Role             string `json:"role" validate:"required,oneof=leader member"`
	AssignedLeaderID *uint  `json:"assigned_leader_id"`
}

// UserUpdateRequest is a partial patch; only present fields are applied.
type UserUpdateRequest struct {
	Email            *string `json:"email" validate:"omitempty,email"`
	FullName         *string `json:"full_name" validate:"omitempty,max=255"`
	Role             *string `json:"role" validate:"omitempty,oneof=leader member"`
	AssignedLeaderID *uint   `json:"assigned_leader_id"`
}

// UserResponse is the serialized user returned to API clients. Password
// material never leaves the model layer.
type UserResponse struct {
	ID               uint        `json:"id"`
	Username         string      `json:"username"`
	Email            string      `json:"email"`
	FullName         string      `json:"full_name"`
	Role             models.Role `json:"role"`
	AssignedLeaderID *uint       `json:"assigned_leader_id"`
	IsActive         bool        `json:"is_active"`
	LastLoginAt      *time.Time  `json:"last_login_at"`
	CreatedAt        time.Time   `json:"created_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:               model.ID,
		Username:         model.Username,
		Email:            model.Email,
		FullName:         model.FullName,
		Role:             model.Role,
		AssignedLeaderID: model.AssignedLeaderID,
		IsActive:         model.IsActive,
		LastLoginAt:      model.LastLoginAt,
		CreatedAt:        model.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}

	return responses
}
