package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/models"
)

func seedUser(t *testing.T, db *gorm.DB, user models.User) models.User {
	t.Helper()
	if user.PasswordHash == "" {
		user.PasswordHash = "x"
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestGetByLoginMatchesUsernameOrEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, models.User{Username: "ana", Email: "ana@example.com", FullName: "Ana", Role: models.RoleMember, IsActive: true})

	byName, err := repo.GetByLogin(ctx, "ana")
	require.NoError(t, err)
	byMail, err := repo.GetByLogin(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, byName.ID, byMail.ID)
}

func TestGetByLoginIgnoresInactiveUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	seedUser(t, db, models.User{Username: "gone", Email: "gone@example.com", FullName: "Gone", Role: models.RoleMember, IsActive: false})

	_, err := repo.GetByLogin(context.Background(), "gone")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserListScopes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	leader := seedUser(t, db, models.User{Username: "lead", Email: "lead@example.com", FullName: "Lead", Role: models.RoleLeader, IsActive: true})
	seedUser(t, db, models.User{Username: "m1", Email: "m1@example.com", FullName: "M1", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	seedUser(t, db, models.User{Username: "m2", Email: "m2@example.com", FullName: "M2", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: false})
	seedUser(t, db, models.User{Username: "stray", Email: "stray@example.com", FullName: "Stray", Role: models.RoleMember, IsActive: true})

	all, err := repo.List(ctx, access.UserScope{All: true})
	require.NoError(t, err)
	require.Len(t, all, 3, "inactive users stay hidden")

	team, err := repo.List(ctx, access.UserScope{LeaderID: &leader.ID})
	require.NoError(t, err)
	require.Len(t, team, 1)
	require.Equal(t, "m1", team[0].Username)

	none, err := repo.List(ctx, access.UserScope{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestTeamIDsExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	leader := seedUser(t, db, models.User{Username: "lead", Email: "lead@example.com", FullName: "Lead", Role: models.RoleLeader, IsActive: true})
	active := seedUser(t, db, models.User{Username: "m1", Email: "m1@example.com", FullName: "M1", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: true})
	seedUser(t, db, models.User{Username: "m2", Email: "m2@example.com", FullName: "M2", Role: models.RoleMember, AssignedLeaderID: &leader.ID, IsActive: false})

	ids, err := repo.TeamIDs(ctx, leader.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{active.ID}, ids)
}
