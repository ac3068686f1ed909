package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
)

func TestUserListForbiddenForMembers(t *testing.T) {
	app := newTestApp(t)
	_, member, _ := app.seedTeam(t)

	status, _ := app.request(t, http.MethodGet, "/api/users", member.ID, nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestUserListScopedToLeaderTeam(t *testing.T) {
	app := newTestApp(t)
	leader, _, _ := app.seedTeam(t)
	app.seedUser(t, models.User{Username: "stray", Email: "stray@example.com", FullName: "Stray", Role: models.RoleMember, IsActive: true})

	status, payload := app.request(t, http.MethodGet, "/api/users", leader.ID, nil)
	require.Equal(t, fiber.StatusOK, status)

	users := payload["data"].([]interface{})
	require.Len(t, users, 2, "leader sees own team only")
}

func TestUserCreateReturns201(t *testing.T) {
	app := newTestApp(t)
	leader, _, _ := app.seedTeam(t)

	status, payload := app.request(t, http.MethodPost, "/api/users", leader.ID, map[string]interface{}{
		"username":  "newhire",
		"email":     "newhire@example.com",
		"password":  "s3cretpass",
		"full_name": "New Hire",
		"role":      "member",
	})
	require.Equal(t, fiber.StatusCreated, status)

	data := dataField(t, payload)
	require.Equal(t, "newhire", data["username"])
	require.Equal(t, float64(leader.ID), data["assigned_leader_id"], "leader-created users join that leader's team")
}

func TestUserCreateDuplicateReturns400(t *testing.T) {
	app := newTestApp(t)
	leader, member, _ := app.seedTeam(t)

	status, payload := app.request(t, http.MethodPost, "/api/users", leader.ID, map[string]interface{}{
		"username":  member.Username,
		"email":     "other@example.com",
		"password":  "s3cretpass",
		"full_name": "Clone",
		"role":      "member",
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Contains(t, payload["message"], "already taken")
}

func TestUserCreateLeaderByLeaderReturnsReason(t *testing.T) {
	app := newTestApp(t)
	leader, _, _ := app.seedTeam(t)

	status, payload := app.request(t, http.MethodPost, "/api/users", leader.ID, map[string]interface{}{
		"username":  "rival",
		"email":     "rival@example.com",
		"password":  "s3cretpass",
		"full_name": "Rival",
		"role":      "leader",
	})
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, access.ReasonCannotCreatePeer, payload["reason"])
}

func TestUserDeleteCascadesTasks(t *testing.T) {
	app := newTestApp(t)
	leader, member, _ := app.seedTeam(t)
	task := app.seedTask(t, models.Task{Title: "orphaned", Status: models.TaskStatusInProgress, AssignedToID: &member.ID, CreatedByID: leader.ID})

	status, _ := app.request(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", member.ID), leader.ID, nil)
	require.Equal(t, fiber.StatusOK, status)

	var reloaded models.Task
	require.NoError(t, app.db.First(&reloaded, task.ID).Error)
	require.Nil(t, reloaded.AssignedToID)
	require.Equal(t, models.TaskStatusPending, reloaded.Status)

	// The deactivated account can no longer call the API.
	status, _ = app.request(t, http.MethodGet, "/api/tasks", member.ID, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestUserStatsOpenToAnyActor(t *testing.T) {
	app := newTestApp(t)
	leader, memberA, memberB := app.seedTeam(t)
	app.seedTask(t, models.Task{Title: "a", Status: models.TaskStatusCompleted, AssignedToID: &memberA.ID, CreatedByID: leader.ID})
	app.seedTask(t, models.Task{Title: "b", Status: models.TaskStatusPending, AssignedToID: &memberA.ID, CreatedByID: leader.ID})
	app.seedTask(t, models.Task{Title: "c", Status: models.TaskStatusInProgress, AssignedToID: &memberA.ID, CreatedByID: leader.ID})

	status, payload := app.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d/stats", memberA.ID), memberB.ID, nil)
	require.Equal(t, fiber.StatusOK, status)

	data := dataField(t, payload)
	require.Equal(t, float64(3), data["total"])
	require.Equal(t, float64(1), data["completed"])
	require.Equal(t, float64(1), data["in-progress"], "the hyphenated key is part of the stats contract")

	status, _ = app.request(t, http.MethodGet, "/api/users/9999/stats", memberB.ID, nil)
	require.Equal(t, fiber.StatusNotFound, status)
}
