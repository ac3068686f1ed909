// Package access is the single source of truth for who may see and change
// what. Scope builders answer list queries; Can* methods answer individual
// mutations. Every decision is derived from the actor's role plus ownership
// edges; the hierarchy is exactly two levels deep below superadmin, so team
// containment never needs a graph traversal.
package access

import (
	"context"
	"fmt"

	"github.com/hivedesk/taskhub-api/internal/models"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID     uint
	Role   models.Role
	Active bool
}

// Directory resolves hierarchy edges for scope decisions.
type Directory interface {
	// TeamIDs returns the ids of active users whose assigned leader is leaderID.
	TeamIDs(ctx context.Context, leaderID uint) ([]uint, error)
}

// TaskScope restricts a task list query. Exactly one of the three shapes is
// populated: All, AssignedToID (member), or CreatorID+TeamMemberIDs (leader:
// createdBy == creator OR assignedTo IN team).
type TaskScope struct {
	All           bool
	AssignedToID  *uint
	CreatorID     *uint
	TeamMemberIDs []uint
}

// UserScope restricts a user list query.
type UserScope struct {
	All      bool
	LeaderID *uint
}

// ActivityScope restricts an activity query to records authored by ActorIDs,
// or to everything when All is set.
type ActivityScope struct {
	All      bool
	ActorIDs []uint
}

// Engine derives scope predicates and mutation decisions from an actor.
type Engine struct {
	directory Directory
}

// NewEngine constructs the access engine.
func NewEngine(directory Directory) *Engine {
	return &Engine{directory: directory}
}

// TasksFor returns the task visibility scope for the actor.
func (e *Engine) TasksFor(ctx context.Context, actor Actor) (TaskScope, error) {
	switch actor.Role {
	case models.RoleSuperadmin:
		return TaskScope{All: true}, nil
	case models.RoleLeader:
		team, err := e.directory.TeamIDs(ctx, actor.ID)
		if err != nil {
			return TaskScope{}, fmt.Errorf("resolve team: %w", err)
		}
		creator := actor.ID
		return TaskScope{CreatorID: &creator, TeamMemberIDs: team}, nil
	case models.RoleMember:
		assignee := actor.ID
		return TaskScope{AssignedToID: &assignee}, nil
	default:
		return TaskScope{}, deny(ReasonRoleForbidden, "unknown role")
	}
}

// UsersFor returns the user visibility scope for the actor. Members may not
// list users at all.
func (e *Engine) UsersFor(actor Actor) (UserScope, error) {
	switch actor.Role {
	case models.RoleSuperadmin:
		return UserScope{All: true}, nil
	case models.RoleLeader:
		leader := actor.ID
		return UserScope{LeaderID: &leader}, nil
	case models.RoleMember:
		return UserScope{}, deny(ReasonRoleForbidden, "members may not list users")
	default:
		return UserScope{}, deny(ReasonRoleForbidden, "unknown role")
	}
}

// ActivityFor returns the audit trail scope for the actor: everything for a
// superadmin, the leader plus their team for a leader, forbidden for members.
func (e *Engine) ActivityFor(ctx context.Context, actor Actor) (ActivityScope, error) {
	switch actor.Role {
	case models.RoleSuperadmin:
		return ActivityScope{All: true}, nil
	case models.RoleLeader:
		team, err := e.directory.TeamIDs(ctx, actor.ID)
		if err != nil {
			return ActivityScope{}, fmt.Errorf("resolve team: %w", err)
		}
		return ActivityScope{ActorIDs: append(team, actor.ID)}, nil
	case models.RoleMember:
		return ActivityScope{}, deny(ReasonRoleForbidden, "members may not read the activity log")
	default:
		return ActivityScope{}, deny(ReasonRoleForbidden, "unknown role")
	}
}

// CanCreateTask decides whether actor may create a task assigned to assignee.
// Leaders may only assign within their own team.
func (e *Engine) CanCreateTask(actor Actor, assignee *models.User) error {
	switch actor.Role {
	case models.RoleSuperadmin:
		return nil
	case models.RoleLeader:
		if assignee.AssignedLeaderID == nil || *assignee.AssignedLeaderID != actor.ID {
			return deny(ReasonNotYourTeam, "can only assign tasks to your team members")
		}
		return nil
	case models.RoleMember:
		return deny(ReasonRoleForbidden, "members may not create tasks")
	default:
		return deny(ReasonRoleForbidden, "unknown role")
	}
}

// CanUpdateTask allows the superadmin, the creator and the current assignee.
func (e *Engine) CanUpdateTask(actor Actor, task *models.Task) error {
	if actor.Role == models.RoleSuperadmin {
		return nil
	}
	if task.CreatedByID == actor.ID {
		return nil
	}
	if task.AssignedToID != nil && *task.AssignedToID == actor.ID {
		return nil
	}
	return deny(ReasonNotOwner, "permission denied")
}

// CanDeleteTask allows the superadmin and the creator; the assignee alone
// cannot delete.
func (e *Engine) CanDeleteTask(actor Actor, task *models.Task) error {
	if actor.Role == models.RoleSuperadmin || task.CreatedByID == actor.ID {
		return nil
	}
	return deny(ReasonNotOwner, "permission denied")
}

// CanCommentTask allows any authenticated actor. Commenting carries no
// ownership check; see DESIGN.md for the open product question.
func (e *Engine) CanCommentTask(actor Actor, task *models.Task) error {
	return nil
}

// CanCreateUser decides whether actor may create a user with the given role.
// Leaders may never create another leader.
func (e *Engine) CanCreateUser(actor Actor, role models.Role) error {
	switch actor.Role {
	case models.RoleSuperadmin:
		return nil
	case models.RoleLeader:
		if role == models.RoleLeader || role == models.RoleSuperadmin {
			return deny(ReasonCannotCreatePeer, "leaders cannot create other leaders")
		}
		return nil
	case models.RoleMember:
		return deny(ReasonRoleForbidden, "members may not create users")
	default:
		return deny(ReasonRoleForbidden, "unknown role")
	}
}

// CanUpdateUser decides whether actor may update target, optionally changing
// its role to newRole. Leaders are confined to their own team and may not
// promote anyone to leader.
func (e *Engine) CanUpdateUser(actor Actor, target *models.User, newRole *models.Role) error {
	switch actor.Role {
	case models.RoleSuperadmin:
		return nil
	case models.RoleLeader:
		if target.AssignedLeaderID == nil || *target.AssignedLeaderID != actor.ID {
			return deny(ReasonNotYourTeam, "can only update your team members")
		}
		if newRole != nil && (*newRole == models.RoleLeader || *newRole == models.RoleSuperadmin) {
			return deny(ReasonCannotModifyPeer, "cannot promote to leader")
		}
		return nil
	case models.RoleMember:
		return deny(ReasonRoleForbidden, "members may not update users")
	default:
		return deny(ReasonRoleForbidden, "unknown role")
	}
}

// CanDeleteUser decides whether actor may soft-delete target. Leaders are
// confined to their own team and may never delete a leader.
func (e *Engine) CanDeleteUser(actor Actor, target *models.User) error {
	switch actor.Role {
	case models.RoleSuperadmin:
		return nil
	case models.RoleLeader:
		if target.AssignedLeaderID == nil || *target.AssignedLeaderID != actor.ID {
			return deny(ReasonNotYourTeam, "can only delete your team members")
		}
		if target.Role == models.RoleLeader {
			return deny(ReasonCannotModifyPeer, "cannot delete other leaders")
		}
		return nil
	case models.RoleMember:
		return deny(ReasonRoleForbidden, "members may not delete users")
	default:
		return deny(ReasonRoleForbidden, "unknown role")
	}
}
