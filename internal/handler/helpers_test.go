package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/config"
	"github.com/hivedesk/taskhub-api/internal/handler"
	"github.com/hivedesk/taskhub-api/internal/middleware"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
	"github.com/hivedesk/taskhub-api/internal/router"
	"github.com/hivedesk/taskhub-api/internal/service"
)

const testPassword = "s3cretpass"

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

// headerAuth replaces the bearer middleware in tests: the subject arrives in
// the X-Test-User header and the real actor middleware still hits the
// database, so deactivated accounts are rejected exactly as in production.
func headerAuth(c *fiber.Ctx) error {
	raw := c.Get("X-Test-User")
	if raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			c.Locals("user_id", uint(id))
		}
	}
	return c.Next()
}

func newTestApp(t *testing.T) *testApp {
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

	activity := service.NewActivityService(activityLog, engine, validate, logger)
	broadcaster := service.NewBroadcastService(nil, "", nil, logger)
	taskSvc := service.NewTaskService(tasks, users, engine, activity, broadcaster, validate, logger)
	userSvc := service.NewUserService(users, tasks, engine, activity, validate, logger)
	authSvc := service.NewAuthService(users, activity, validate, logger, "test-secret", 0)

	app := fiber.New()
	cfg := config.Config{AppName: "TaskHub API", JWTSecret: "test-secret"}
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authSvc, validate, logger),
		TaskHandler:     handler.NewTaskHandler(taskSvc, validate, logger),
		UserHandler:     handler.NewUserHandler(userSvc, validate, logger),
		ActivityHandler: handler.NewActivityHandler(activity, validate, logger),
		JWTMiddleware:   headerAuth,
		ActorMiddleware: middleware.LoadActor(users),
	})

	return &testApp{app: app, db: db}
}

func (a *testApp) seedUser(t *testing.T, user models.User) models.User {
	t.Helper()
	if user.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		require.NoError(t, err)
		user.PasswordHash = string(hash)
	}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func (a *testApp) seedTeam(t *testing.T) (leader, memberA, memberB models.User) {
	t.Helper()
	leader = a.seedUser(t, models.User{Username: "lead", Email: "lead@example.com", FullName: "Lead", Role: models.RoleLeader, IsActive: true})
	memberA = a.seedUser(t, models.User{Username: "ma", Email: "ma@example.com", FullName: "Member A", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	memberB = a.seedUser(t, models.User{Username: "mb", Email: "mb@example.com", FullName: "Member B", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	return leader, memberA, memberB
}

func (a *testApp) seedTask(t *testing.T, task models.Task) models.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	require.NoError(t, a.db.Create(&task).Error)
	return task
}

// request performs an HTTP round trip against the test app as the given user
// (0 for anonymous) and decodes the response envelope.
func (a *testApp) request(t *testing.T, method, path string, as uint, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(as), 10))
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

func dataField(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := payload["data"].(map[string]interface{})
	require.True(t, ok, "response data is not an object: %v", payload)
	return data
}
