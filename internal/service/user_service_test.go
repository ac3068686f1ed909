package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/dto"
	"github.com/hivedesk/taskhub-api/internal/models"
)

func TestUserCreateForceAssignsLeaderTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, _, _ := env.seedTeam(t)
	other := env.seedUser(t, models.User{Username: "lead2", Email: "lead2@example.com", FullName: "Lead Two", Role: models.RoleLeader, IsActive: true})

	// The payload names another leader; the actor's own team wins.
	created, err := env.userSvc.Create(ctx, actorFor(leader), dto.UserCreateRequest{
		Username:         "NewHire",
		Email:            "New.Hire@Example.COM",
		Password:         "s3cretpass",
		FullName:         "New Hire",
		Role:             "member",
		AssignedLeaderID: &other.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "newhire", created.Username)
	require.Equal(t, "new.hire@example.com", created.Email)
	require.Equal(t, leader.ID, *created.AssignedLeaderID)
	require.True(t, created.IsActive)

	var stored models.User
	require.NoError(t, env.db.First(&stored, created.ID).Error)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cretpass")))
	require.Equal(t, leader.ID, *stored.CreatedByID)

	entries := env.activityEntries(t)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActivityCreateUser, entries[0].Type)
	require.Equal(t, created.ID, *entries[0].TargetUserID)
}

func TestUserCreateLeaderCannotCreatePeer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, _, _ := env.seedTeam(t)

	_, err := env.userSvc.Create(ctx, actorFor(leader), dto.UserCreateRequest{
		Username: "rival",
		Email:    "rival@example.com",
		Password: "s3cretpass",
		FullName: "Rival",
		Role:     "leader",
	})

	var denial *access.Error
	require.ErrorAs(t, err, &denial)
	require.Equal(t, access.ReasonCannotCreatePeer, denial.Reason)
}

func TestUserCreateMemberRequiresActiveLeader(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, models.User{Username: "root", Email: "root@example.com", FullName: "Root", Role: models.RoleSuperadmin, IsActive: true})

	_, err := env.userSvc.Create(ctx, actorFor(admin), dto.UserCreateRequest{
		Username: "orphan",
		Email:    "orphan@example.com",
		Password: "s3cretpass",
		FullName: "Orphan",
		Role:     "member",
	})
	require.ErrorIs(t, err, ErrLeaderRequired)

	ghost := uint(9999)
	_, err = env.userSvc.Create(ctx, actorFor(admin), dto.UserCreateRequest{
		Username:         "orphan",
		Email:            "orphan@example.com",
		Password:         "s3cretpass",
		FullName:         "Orphan",
		Role:             "member",
		AssignedLeaderID: &ghost,
	})
	require.ErrorIs(t, err, ErrLeaderNotFound)
}

func TestUserCreateLeaderHasNoLeaderEdge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, models.User{Username: "root", Email: "root@example.com", FullName: "Root", Role: models.RoleSuperadmin, IsActive: true})

	sneaky := admin.ID
	created, err := env.userSvc.Create(ctx, actorFor(admin), dto.UserCreateRequest{
		Username:         "newlead",
		Email:            "newlead@example.com",
		Password:         "s3cretpass",
		FullName:         "New Lead",
		Role:             "leader",
		AssignedLeaderID: &sneaky,
	})
	require.NoError(t, err)
	require.Nil(t, created.AssignedLeaderID, "leaders never carry a leader edge")
}

func TestUserUpdateLeaderCannotPromote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, member, _ := env.seedTeam(t)

	_, err := env.userSvc.Update(ctx, actorFor(leader), member.ID, dto.UserUpdateRequest{
		Role: strPtr("leader"),
	})

	var denial *access.Error
	require.ErrorAs(t, err, &denial)
	require.Equal(t, access.ReasonCannotModifyPeer, denial.Reason)
}

func TestUserUpdateOutsideTeamDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, _, _ := env.seedTeam(t)
	other := env.seedUser(t, models.User{Username: "lead2", Email: "lead2@example.com", FullName: "Lead Two", Role: models.RoleLeader, IsActive: true})
	stranger := env.seedUser(t, models.User{Username: "far", Email: "far@example.com", FullName: "Far", Role: models.RoleMember, AssignedLeaderID: &other.ID, IsActive: true})

	_, err := env.userSvc.Update(ctx, actorFor(leader), stranger.ID, dto.UserUpdateRequest{
		FullName: strPtr("Hijacked"),
	})

	var denial *access.Error
	require.ErrorAs(t, err, &denial)
	require.Equal(t, access.ReasonNotYourTeam, denial.Reason)
}

func TestUserUpdateReassignRequiresActiveLeader(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, member, _ := env.seedTeam(t)
	admin := env.seedUser(t, models.User{Username: "root", Email: "root@example.com", FullName: "Root", Role: models.RoleSuperadmin, IsActive: true})

	// Reassignment to a user id that does not exist.
	ghost := uint(9999)
	_, err := env.userSvc.Update(ctx, actorFor(admin), member.ID, dto.UserUpdateRequest{
		AssignedLeaderID: &ghost,
	})
	require.ErrorIs(t, err, ErrLeaderNotFound)

	// Reassignment to a fellow member.
	peer := env.seedUser(t, models.User{Username: "peer", Email: "peer@example.com", FullName: "Peer", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	_, err = env.userSvc.Update(ctx, actorFor(admin), member.ID, dto.UserUpdateRequest{
		AssignedLeaderID: &peer.ID,
	})
	require.ErrorIs(t, err, ErrLeaderNotFound)

	// Reassignment to a deactivated leader.
	retired := env.seedUser(t, models.User{Username: "retired", Email: "retired@example.com", FullName: "Retired", Role: models.RoleLeader, IsActive: false})
	_, err = env.userSvc.Update(ctx, actorFor(admin), member.ID, dto.UserUpdateRequest{
		AssignedLeaderID: &retired.ID,
	})
	require.ErrorIs(t, err, ErrLeaderNotFound)

	// A real active leader goes through.
	fresh := env.seedUser(t, models.User{Username: "lead2", Email: "lead2@example.com", FullName: "Lead Two", Role: models.RoleLeader, IsActive: true})
	updated, err := env.userSvc.Update(ctx, actorFor(admin), member.ID, dto.UserUpdateRequest{
		AssignedLeaderID: &fresh.ID,
	})
	require.NoError(t, err)
	require.Equal(t, fresh.ID, *updated.AssignedLeaderID)
}

func TestUserCreateDuplicateUsernameRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, member, _ := env.seedTeam(t)

	_, err := env.userSvc.Create(ctx, actorFor(leader), dto.UserCreateRequest{
		Username: member.Username,
		Email:    "fresh@example.com",
		Password: "s3cretpass",
		FullName: "Fresh",
		Role:     "member",
	})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = env.userSvc.Create(ctx, actorFor(leader), dto.UserCreateRequest{
		Username: "fresh",
		Email:    member.Email,
		Password: "s3cretpass",
		FullName: "Fresh",
		Role:     "member",
	})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestUserUpdatePromotionClearsLeaderEdge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, member, _ := env.seedTeam(t)
	admin := env.seedUser(t, models.User{Username: "root", Email: "root@example.com", FullName: "Root", Role: models.RoleSuperadmin, IsActive: true})

	updated, err := env.userSvc.Update(ctx, actorFor(admin), member.ID, dto.UserUpdateRequest{
		Role: strPtr("leader"),
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleLeader, updated.Role)
	require.Nil(t, updated.AssignedLeaderID)
}

func TestUserDeleteSoftDeletesAndUnassignsTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, member, survivor := env.seedTeam(t)
	victim := env.seedTask(t, models.Task{Title: "orphaned", Status: models.TaskStatusInProgress, AssignedToID: &member.ID, CreatedByID: leader.ID})
	untouched := env.seedTask(t, models.Task{Title: "kept", Status: models.TaskStatusInProgress, AssignedToID: &survivor.ID, CreatedByID: leader.ID})

	require.NoError(t, env.userSvc.Delete(ctx, actorFor(leader), member.ID))

	var stored models.User
	require.NoError(t, env.db.First(&stored, member.ID).Error)
	require.False(t, stored.IsActive, "deletion deactivates, the row survives")

	var task models.Task
	require.NoError(t, env.db.First(&task, victim.ID).Error)
	require.Nil(t, task.AssignedToID)
	require.Equal(t, models.TaskStatusPending, task.Status)

	require.NoError(t, env.db.First(&task, untouched.ID).Error)
	require.Equal(t, survivor.ID, *task.AssignedToID)
	require.Equal(t, models.TaskStatusInProgress, task.Status)

	entries := env.activityEntries(t)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActivityDeleteUser, entries[0].Type)
}

func TestUserDeleteOutsideTeamDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, _, _ := env.seedTeam(t)
	other := env.seedUser(t, models.User{Username: "lead2", Email: "lead2@example.com", FullName: "Lead Two", Role: models.RoleLeader, IsActive: true})
	stranger := env.seedUser(t, models.User{Username: "far", Email: "far@example.com", FullName: "Far", Role: models.RoleMember, AssignedLeaderID: &other.ID, IsActive: true})

	err := env.userSvc.Delete(ctx, actorFor(leader), stranger.ID)

	var denial *access.Error
	require.ErrorAs(t, err, &denial)
	require.Equal(t, access.ReasonNotYourTeam, denial.Reason)
}

func TestUserListScopesByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, _, _ := env.seedTeam(t)
	admin := env.seedUser(t, models.User{Username: "root", Email: "root@example.com", FullName: "Root", Role: models.RoleSuperadmin, IsActive: true})

	all, err := env.userSvc.List(ctx, actorFor(admin))
	require.NoError(t, err)
	require.Len(t, all, 4)

	team, err := env.userSvc.List(ctx, actorFor(leader))
	require.NoError(t, err)
	require.Len(t, team, 2, "a leader sees only their team members")

	member := team[0]
	_, err = env.userSvc.List(ctx, access.Actor{ID: member.ID, Role: models.RoleMember, Active: true})
	var denial *access.Error
	require.ErrorAs(t, err, &denial)
	require.Equal(t, access.ReasonRoleForbidden, denial.Reason)
}

func TestUserStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leader, member, _ := env.seedTeam(t)
	env.seedTask(t, models.Task{Title: "a", Status: models.TaskStatusPending, AssignedToID: &member.ID, CreatedByID: leader.ID})
	env.seedTask(t, models.Task{Title: "b", Status: models.TaskStatusCompleted, AssignedToID: &member.ID, CreatedByID: leader.ID})

	counts, err := env.userSvc.Stats(ctx, member.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Total)
	require.Equal(t, int64(1), counts.Pending)
	require.Equal(t, int64(1), counts.Completed)

	_, err = env.userSvc.Stats(ctx, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
