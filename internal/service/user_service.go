package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/dto"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
)

// User directory sentinel errors mapped to HTTP statuses at the boundary.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("username or email already taken")
	ErrLeaderNotFound = errors.New("assigned leader not found")
	ErrLeaderRequired = errors.New("members require an assigned leader")
)

// UserService owns user records and hierarchy edges: creation, updates and
// the soft-delete cascade that unassigns the deleted user's tasks.
type UserService interface {
	List(ctx context.Context, actor access.Actor) ([]dto.UserResponse, error)
	Create(ctx context.Context, actor access.Actor, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Update(ctx context.Context, actor access.Actor, id uint, patch dto.UserUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor access.Actor, id uint) error
	Stats(ctx context.Context, id uint) (repository.TaskStatusCounts, error)
}

type userService struct {
	users     repository.UserRepository
	tasks     repository.TaskRepository
	engine    *access.Engine
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user directory service.
func NewUserService(users repository.UserRepository, tasks repository.TaskRepository, engine *access.Engine, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		tasks:     tasks,
		engine:    engine,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, actor access.Actor) ([]dto.UserResponse, error) {
	scope, err := s.engine.UsersFor(actor)
	if err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return dto.NewUserResponseSlice(users), nil
}

func (s *userService) Create(ctx context.Context, actor access.Actor, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	role := models.Role(payload.Role)
	if err := s.engine.CanCreateUser(actor, role); err != nil {
		return dto.UserResponse{}, err
	}

	// A leader-created user always lands on that leader's team, regardless
	// of the request payload.
	assignedLeaderID := payload.AssignedLeaderID
	if actor.Role == models.RoleLeader {
		leaderID := actor.ID
		assignedLeaderID = &leaderID
	}

	if role == models.RoleMember {
		if assignedLeaderID == nil {
			return dto.UserResponse{}, ErrLeaderRequired
		}
		if err := s.ensureActiveLeader(ctx, *assignedLeaderID); err != nil {
			return dto.UserResponse{}, err
		}
	} else {
		assignedLeaderID = nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	creator := actor.ID
	user := models.User{
		Username:         strings.ToLower(strings.TrimSpace(payload.Username)),
		Email:            strings.ToLower(strings.TrimSpace(payload.Email)),
		PasswordHash:     string(hash),
		FullName:         strings.TrimSpace(payload.FullName),
		Role:             role,
		AssignedLeaderID: assignedLeaderID,
		IsActive:         true,
		CreatedByID:      &creator,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrUserExists
		}
		return dto.UserResponse{}, fmt.Errorf("create user: %w", err)
	}

	recordAudit(ctx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityCreateUser,
		ActorID:      actor.ID,
		TargetUserID: &user.ID,
		Description:  fmt.Sprintf("Created %s: %s", role, user.FullName),
	})

	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, actor access.Actor, id uint, patch dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(patch); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	var newRole *models.Role
	if patch.Role != nil {
		role := models.Role(*patch.Role)
		newRole = &role
	}

	if err := s.engine.CanUpdateUser(actor, user, newRole); err != nil {
		return dto.UserResponse{}, err
	}

	if patch.AssignedLeaderID != nil {
		if err := s.ensureActiveLeader(ctx, *patch.AssignedLeaderID); err != nil {
			return dto.UserResponse{}, err
		}
	}

	updated, changes := applyUserPatch(*user, patch)
	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrUserExists
		}
		return dto.UserResponse{}, fmt.Errorf("update user: %w", err)
	}

	recordAudit(ctx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityUpdateUser,
		ActorID:      actor.ID,
		TargetUserID: &updated.ID,
		Description:  fmt.Sprintf("Updated user: %s", updated.FullName),
		Metadata:     changes,
	})

	return dto.NewUserResponse(updated), nil
}

// Delete soft-deletes the user and cascades: every task assigned to them is
// unassigned and reset to pending.
func (s *userService) Delete(ctx context.Context, actor access.Actor, id uint) error {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.engine.CanDeleteUser(actor, user); err != nil {
		return err
	}

	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if err := s.tasks.UnassignForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("unassign tasks: %w", err)
	}

	recordAudit(ctx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityDeleteUser,
		ActorID:      actor.ID,
		TargetUserID: &user.ID,
		Description:  fmt.Sprintf("Deleted user: %s", user.FullName),
	})

	return nil
}

func (s *userService) Stats(ctx context.Context, id uint) (repository.TaskStatusCounts, error) {
	if _, err := s.loadUser(ctx, id); err != nil {
		return repository.TaskStatusCounts{}, err
	}
	return s.tasks.CountByStatus(ctx, id)
}

// ensureActiveLeader verifies that id names an active user holding the
// leader role. Both member creation and reassignment go through this check.
func (s *userService) ensureActiveLeader(ctx context.Context, id uint) error {
	leader, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeaderNotFound
		}
		return err
	}
	if leader.Role != models.RoleLeader || !leader.IsActive {
		return ErrLeaderNotFound
	}
	return nil
}

func (s *userService) loadUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// applyUserPatch applies the fields present in patch to a copy of the user
// and reports the applied changes. Password changes never flow through this
// path.
func applyUserPatch(user models.User, patch dto.UserUpdateRequest) (models.User, map[string]interface{}) {
	changes := map[string]interface{}{}

	if patch.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
		changes["email"] = user.Email
	}
	if patch.FullName != nil {
		user.FullName = strings.TrimSpace(*patch.FullName)
		changes["full_name"] = user.FullName
	}
	if patch.Role != nil {
		user.Role = models.Role(*patch.Role)
		changes["role"] = *patch.Role
		if user.Role != models.RoleMember {
			user.AssignedLeaderID = nil
		}
	}
	if patch.AssignedLeaderID != nil {
		user.AssignedLeaderID = patch.AssignedLeaderID
		changes["assigned_leader_id"] = *patch.AssignedLeaderID
	}

	return user, changes
}
