package service

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/dto"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
)

const defaultActivityPageSize = 20

// ActivityEntry captures the details required to persist an audit record.
type ActivityEntry struct {
	Type         models.ActivityType
	ActorID      uint
	TargetUserID *uint
	TargetTaskID *uint
	Description  string
	Metadata     map[string]interface{}
}

// ActivityRecorder appends audit records. Every mutating action in the
// system writes exactly one entry through this interface.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityService records audit entries and answers scoped, paginated
// queries over the trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, actor access.Actor, query dto.ActivityListQuery) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	engine    *access.Engine
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(repo repository.ActivityLogRepository, engine *access.Engine, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		engine:    engine,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	if !entry.Type.Valid() {
		return fmt.Errorf("unknown activity type %q", entry.Type)
	}
	if entry.Description == "" {
		return fmt.Errorf("activity description is required")
	}

	model := models.ActivityLog{
		Type:         entry.Type,
		ActorID:      entry.ActorID,
		TargetUserID: entry.TargetUserID,
		TargetTaskID: entry.TargetTaskID,
		Description:  entry.Description,
		Metadata:     datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return fmt.Errorf("append activity record: %w", err)
	}
	return nil
}

func (s *activityService) List(ctx context.Context, actor access.Actor, query dto.ActivityListQuery) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ActivityListResponse{}, err
	}

	scope, err := s.engine.ActivityFor(ctx, actor)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultActivityPageSize
	}

	filter := repository.ActivityLogFilter{
		Type:     models.ActivityType(query.Type),
		ActorID:  query.ActorID,
		Page:     page,
		PageSize: limit,
	}

	entries, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return dto.ActivityListResponse{}, fmt.Errorf("list activity: %w", err)
	}

	return dto.ActivityListResponse{
		Activities:  dto.NewActivityResponseSlice(entries),
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}
