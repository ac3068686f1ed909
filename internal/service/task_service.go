package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/dto"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
)

const defaultTaskPageSize = 10

// Task lifecycle sentinel errors mapped to HTTP statuses at the boundary.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrAssigneeNotFound = errors.New("assigned user not found")
	ErrCommentEmpty     = errors.New("comment text empty after sanitization")
)

// TaskService owns task creation, updates, status transitions and comment
// append. Permission checks are delegated to the access engine; every
// committed mutation appends an audit record and create/update additionally
// publish a realtime event.
type TaskService interface {
	List(ctx context.Context, actor access.Actor, query dto.TaskListQuery) (dto.TaskListResponse, error)
	Create(ctx context.Context, actor access.Actor, payload dto.TaskCreateRequest) (dto.TaskResponse, error)
	Update(ctx context.Context, actor access.Actor, id uint, patch dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, actor access.Actor, id uint) error
	AddComment(ctx context.Context, actor access.Actor, id uint, payload dto.TaskCommentRequest) (dto.TaskCommentResponse, error)
}

type taskService struct {
	tasks       repository.TaskRepository
	users       repository.UserRepository
	engine      *access.Engine
	activity    ActivityRecorder
	broadcaster BroadcastService
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	now         func() time.Time
}

// NewTaskService constructs the task lifecycle service.
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, engine *access.Engine, activity ActivityRecorder, broadcaster BroadcastService, validate *validator.Validate, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:       tasks,
		users:       users,
		engine:      engine,
		activity:    activity,
		broadcaster: broadcaster,
		validator:   validate,
		logger:      logger.With().Str("component", "task_service").Logger(),
		tracer:      otel.Tracer("github.com/hivedesk/taskhub-api/internal/service/task"),
		sanitizer:   bluemonday.StrictPolicy(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskService) List(ctx context.Context, actor access.Actor, query dto.TaskListQuery) (dto.TaskListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.TaskListResponse{}, err
	}

	scope, err := s.engine.TasksFor(ctx, actor)
	if err != nil {
		return dto.TaskListResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultTaskPageSize
	}

	filter := repository.TaskFilter{
		Status:       models.TaskStatus(query.Status),
		Priority:     models.TaskPriority(query.Priority),
		AssignedToID: query.AssignedToID,
		Page:         page,
		PageSize:     limit,
	}

	tasks, total, err := s.tasks.List(ctx, scope, filter)
	if err != nil {
		return dto.TaskListResponse{}, fmt.Errorf("list tasks: %w", err)
	}

	return dto.TaskListResponse{
		Tasks:       dto.NewTaskResponseSlice(tasks),
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}

func (s *taskService) Create(ctx context.Context, actor access.Actor, payload dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	assignee, err := s.users.GetByID(ctx, payload.AssignedToID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrAssigneeNotFound
		}
		return dto.TaskResponse{}, err
	}
	if !assignee.IsActive {
		return dto.TaskResponse{}, ErrAssigneeNotFound
	}

	if err := s.engine.CanCreateTask(actor, assignee); err != nil {
		return dto.TaskResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "task.create", trace.WithAttributes(
		attribute.Int("task.assigned_to", int(payload.AssignedToID)),
		attribute.Int("actor.id", int(actor.ID)),
	))
	defer span.End()

	priority := models.TaskPriority(payload.Priority)
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	assignedTo := payload.AssignedToID
	task := models.Task{
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		Status:       models.TaskStatusPending,
		Priority:     priority,
		AssignedToID: &assignedTo,
		CreatedByID:  actor.ID,
	}

	if payload.DueDate != "" {
		due, err := time.Parse(time.RFC3339, payload.DueDate)
		if err != nil {
			return dto.TaskResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		task.DueDate = &due
	}

	if err := s.tasks.Create(spanCtx, &task); err != nil {
		span.RecordError(err)
		return dto.TaskResponse{}, fmt.Errorf("create task: %w", err)
	}

	recordAudit(spanCtx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityCreateTask,
		ActorID:      actor.ID,
		TargetTaskID: &task.ID,
		Description:  fmt.Sprintf("Created task: %s", task.Title),
		Metadata:     map[string]interface{}{"assigned_to": assignee.FullName},
	})

	response := dto.NewTaskResponse(task)
	s.broadcaster.Publish(spanCtx, []string{UserTopic(assignedTo), TopicLeaders}, EventNewTask, response)

	return response, nil
}

func (s *taskService) Update(ctx context.Context, actor access.Actor, id uint, patch dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(patch); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.loadTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if err := s.engine.CanUpdateTask(actor, task); err != nil {
		return dto.TaskResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "task.update", trace.WithAttributes(
		attribute.Int("task.id", int(id)),
		attribute.Int("actor.id", int(actor.ID)),
	))
	defer span.End()

	updated, changes, err := applyTaskPatch(*task, patch, s.now())
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if err := s.tasks.Update(spanCtx, &updated); err != nil {
		span.RecordError(err)
		return dto.TaskResponse{}, fmt.Errorf("update task: %w", err)
	}

	recordAudit(spanCtx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityUpdateTask,
		ActorID:      actor.ID,
		TargetTaskID: &updated.ID,
		Description:  fmt.Sprintf("Updated task: %s", updated.Title),
		Metadata:     changes,
	})

	response := dto.NewTaskResponse(updated)
	topics := []string{TopicLeaders}
	if updated.AssignedToID != nil {
		topics = append([]string{UserTopic(*updated.AssignedToID)}, topics...)
	}
	s.broadcaster.Publish(spanCtx, topics, EventTaskUpdated, response)

	return response, nil
}

func (s *taskService) Delete(ctx context.Context, actor access.Actor, id uint) error {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.engine.CanDeleteTask(actor, task); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	recordAudit(ctx, s.activity, s.logger, ActivityEntry{
		Type:        models.ActivityDeleteTask,
		ActorID:     actor.ID,
		Description: fmt.Sprintf("Deleted task: %s", task.Title),
	})

	return nil
}

func (s *taskService) AddComment(ctx context.Context, actor access.Actor, id uint, payload dto.TaskCommentRequest) (dto.TaskCommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskCommentResponse{}, err
	}

	task, err := s.loadTask(ctx, id)
	if err != nil {
		return dto.TaskCommentResponse{}, err
	}

	if err := s.engine.CanCommentTask(actor, task); err != nil {
		return dto.TaskCommentResponse{}, err
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if text == "" {
		return dto.TaskCommentResponse{}, ErrCommentEmpty
	}

	comment := models.TaskComment{
		TaskID:   task.ID,
		AuthorID: actor.ID,
		Text:     text,
	}

	if err := s.tasks.AddComment(ctx, &comment); err != nil {
		return dto.TaskCommentResponse{}, fmt.Errorf("append comment: %w", err)
	}

	recordAudit(ctx, s.activity, s.logger, ActivityEntry{
		Type:         models.ActivityComment,
		ActorID:      actor.ID,
		TargetTaskID: &task.ID,
		Description:  fmt.Sprintf("Commented on task: %s", task.Title),
	})

	return dto.NewTaskCommentResponse(comment), nil
}

func (s *taskService) loadTask(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// applyTaskPatch applies the fields present in patch to a copy of the task
// and reports the applied changes. Moving to completed stamps CompletedAt;
// moving away from completed deliberately leaves it untouched (observed
// behaviour, pinned by tests).
func applyTaskPatch(task models.Task, patch dto.TaskUpdateRequest, now time.Time) (models.Task, map[string]interface{}, error) {
	changes := map[string]interface{}{}

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
		changes["title"] = task.Title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
		changes["description"] = task.Description
	}
	if patch.Status != nil {
		task.Status = models.TaskStatus(*patch.Status)
		changes["status"] = *patch.Status
		if task.Status == models.TaskStatusCompleted {
			task.CompletedAt = &now
		}
	}
	if patch.Priority != nil {
		task.Priority = models.TaskPriority(*patch.Priority)
		changes["priority"] = *patch.Priority
	}
	if patch.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *patch.DueDate)
		if err != nil {
			return models.Task{}, nil, fmt.Errorf("invalid due date: %w", err)
		}
		task.DueDate = &due
		changes["due_date"] = *patch.DueDate
	}

	return task, changes, nil
}
