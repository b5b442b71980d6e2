// internal/rbac/rbac.go
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
)

type Action string

const (
	ActionRead   Action = "READ"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

type Resource string

const (
	ResourceTask       Resource = "TASK"
	ResourceProject    Resource = "PROJECT"
	ResourceMembership Resource = "MEMBERSHIP"
	ResourceEmbed      Resource = "EMBED"
)

// Decision is the outcome of a permission check. It carries no side effects;
// callers are responsible for auditing.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// TaskResolver looks up tasks for ownership checks.
type TaskResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
}

// ProjectResolver looks up projects for ownership checks.
type ProjectResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
}

// Checker maps (role, action, resource, ownership) to allow/deny.
type Checker struct {
	tasks    TaskResolver
	projects ProjectResolver
}

func NewChecker(tasks TaskResolver, projects ProjectResolver) *Checker {
	return &Checker{tasks: tasks, projects: projects}
}

// CheckPermission decides whether the caller may perform action on resource.
// MEMBER-level task mutations resolve the task, and its project when linked,
// to test ownership. Cross-tenant targets read as "Task not found".
func (c *Checker) CheckPermission(ctx context.Context, ac *auth.Context, action Action, resource Resource, resourceID *uuid.UUID) (Decision, error) {
	if ac == nil {
		return deny("Insufficient permissions"), nil
	}

	// Admin can do everything.
	if ac.Role == model.RoleAdmin {
		return allow(), nil
	}

	// Manager can manage projects and tasks, and read memberships.
	if ac.Role == model.RoleManager {
		if resource == ResourceProject || resource == ResourceTask {
			return allow(), nil
		}
		if resource == ResourceMembership && action == ActionRead {
			return allow(), nil
		}
	}

	if ac.Role == model.RoleMember {
		if resource == ResourceTask {
			if action == ActionRead || action == ActionCreate {
				return allow(), nil
			}
			if (action == ActionUpdate || action == ActionDelete) && resourceID != nil {
				return c.checkTaskOwnership(ctx, ac, *resourceID)
			}
		}
		if resource == ResourceProject && action == ActionRead {
			return allow(), nil
		}
	}

	return deny("Insufficient permissions"), nil
}

func (c *Checker) checkTaskOwnership(ctx context.Context, ac *auth.Context, taskID uuid.UUID) (Decision, error) {
	task, err := c.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return deny("Task not found"), nil
		}
		return Decision{}, fmt.Errorf("resolving task for permission check: %w", err)
	}

	if task.OrgID != ac.OrgID {
		return deny("Task not found"), nil
	}

	// Members can edit their own tasks.
	if task.AssigneeID != nil && *task.AssigneeID == ac.User.ID {
		return allow(), nil
	}

	// And tasks in projects they own.
	if task.ProjectID != nil {
		project, err := c.projects.FindByID(ctx, *task.ProjectID)
		if err != nil {
			if errors.Is(err, domain.ErrProjectNotFound) {
				return deny("Insufficient permissions"), nil
			}
			return Decision{}, fmt.Errorf("resolving project for permission check: %w", err)
		}
		if project.OwnerID == ac.User.ID {
			return allow(), nil
		}
	}

	return deny("Insufficient permissions"), nil
}

// RequireRole enforces the strict MEMBER < MANAGER < ADMIN hierarchy.
func RequireRole(ac *auth.Context, required model.Role) Decision {
	if ac != nil && ac.Role.Meets(required) {
		return allow()
	}
	return deny(fmt.Sprintf("Requires %s role", required))
}

// CheckOrgAccess denies when the caller's bound org differs from the
// requested one, blocking cross-tenant parameter injection.
func CheckOrgAccess(ac *auth.Context, orgID uuid.UUID) Decision {
	if ac == nil || ac.OrgID != orgID {
		return deny("Organization mismatch")
	}
	return allow()
}
