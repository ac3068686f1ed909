package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
)

// publishedEvent records one Publish call made against the stub broadcaster.
type publishedEvent struct {
	Topics  []string
	Event   string
	Payload interface{}
}

type stubBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *stubBroadcaster) ServeConnection(_ *websocket.Conn, _ BroadcastConnectionOptions) {}

func (b *stubBroadcaster) Start(_ context.Context) {}

func (b *stubBroadcaster) Publish(_ context.Context, topics []string, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Topics: topics, Event: event, Payload: payload})
}

func (b *stubBroadcaster) published() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedEvent, len(b.events))
	copy(out, b.events)
	return out
}

type testEnv struct {
	db          *gorm.DB
	users       repository.UserRepository
	tasks       repository.TaskRepository
	activityLog repository.ActivityLogRepository
	engine      *access.Engine
	broadcaster *stubBroadcaster
	activity    ActivityService
	taskSvc     TaskService
	userSvc     UserService
	authSvc     AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskComment{}, &models.ActivityLog{}))

	logger := zerolog.Nop()
	validate := validator.New()

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	activityLog := repository.NewActivityLogRepository(db)
	engine := access.NewEngine(users)
	activity := NewActivityService(activityLog, engine, validate, logger)
	broadcaster := &stubBroadcaster{}

	return &testEnv{
		db:          db,
		users:       users,
		tasks:       tasks,
		activityLog: activityLog,
		engine:      engine,
		broadcaster: broadcaster,
		activity:    activity,
		taskSvc:     NewTaskService(tasks, users, engine, activity, broadcaster, validate, logger),
		userSvc:     NewUserService(users, tasks, engine, activity, validate, logger),
		authSvc:     NewAuthService(users, activity, validate, logger, "test-secret", 0),
	}
}

func (e *testEnv) seedUser(t *testing.T, user models.User) models.User {
	t.Helper()
	if user.PasswordHash == "" {
		user.PasswordHash = "x"
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) seedTask(t *testing.T, task models.Task) models.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	require.NoError(t, e.db.Create(&task).Error)
	return task
}

// seedTeam creates a leader with two active members, the usual fixture for
// permission tests.
func (e *testEnv) seedTeam(t *testing.T) (leader, memberA, memberB models.User) {
	t.Helper()
	leader = e.seedUser(t, models.User{Username: "lead", Email: "lead@example.com", FullName: "Lead", Role: models.RoleLeader, IsActive: true})
	memberA = e.seedUser(t, models.User{Username: "ma", Email: "ma@example.com", FullName: "Member A", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	memberB = e.seedUser(t, models.User{Username: "mb", Email: "mb@example.com", FullName: "Member B", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	return leader, memberA, memberB
}

func actorFor(user models.User) access.Actor {
	return access.Actor{ID: user.ID, Role: user.Role, Active: user.IsActive}
}

func (e *testEnv) activityEntries(t *testing.T) []models.ActivityLog {
	t.Helper()
	var entries []models.ActivityLog
	require.NoError(t, e.db.Order("id ASC").Find(&entries).Error)
	return entries
}

func strPtr(v string) *string { return &v }
