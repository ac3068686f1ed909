package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
)

// TaskFilter narrows task list queries within an access scope.
type TaskFilter struct {
	Status       models.TaskStatus
	Priority     models.TaskPriority
	AssignedToID *uint
	Page         int
	PageSize     int
}

// TaskStatusCounts aggregates a user's tasks by status.
type TaskStatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in-progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

// TaskRepository persists tasks and their comments.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	List(ctx context.Context, scope access.TaskScope, filter TaskFilter) ([]models.Task, int64, error)
	AddComment(ctx context.Context, comment *models.TaskComment) error
	UnassignForUser(ctx context.Context, userID uint) error
	CountByStatus(ctx context.Context, userID uint) (TaskStatusCounts, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository constructs the task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List applies the access scope first, then the caller's filters, so a filter
// can only narrow what the scope already permits.
func (r *taskRepository) List(ctx context.Context, scope access.TaskScope, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	switch {
	case scope.All:
	case scope.AssignedToID != nil:
		query = query.Where("assigned_to_id = ?", *scope.AssignedToID)
	case scope.CreatorID != nil:
		if len(scope.TeamMemberIDs) > 0 {
			query = query.Where("created_by_id = ? OR assigned_to_id IN ?", *scope.CreatorID, scope.TeamMemberIDs)
		} else {
			query = query.Where("created_by_id = ?", *scope.CreatorID)
		}
	default:
		return []models.Task{}, 0, nil
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *taskRepository) AddComment(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// UnassignForUser clears the assignee and resets status to pending on every
// task assigned to userID. Used by the soft-delete cascade.
func (r *taskRepository) UnassignForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("assigned_to_id = ?", userID).
		Updates(map[string]interface{}{
			"assigned_to_id": nil,
			"status":         models.TaskStatusPending,
		}).Error
}

func (r *taskRepository) CountByStatus(ctx context.Context, userID uint) (TaskStatusCounts, error) {
	rows := []struct {
		Status models.TaskStatus
		Count  int64
	}{}

	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("assigned_to_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return TaskStatusCounts{}, err
	}

	var counts TaskStatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.TaskStatusPending:
			counts.Pending = row.Count
		case models.TaskStatusInProgress:
			counts.InProgress = row.Count
		case models.TaskStatusCompleted:
			counts.Completed = row.Count
		case models.TaskStatusCancelled:
			counts.Cancelled = row.Count
		}
	}
	return counts, nil
}
