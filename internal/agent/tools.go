// internal/agent/tools.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/llm"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

// ToolName identifies one of the fixed catalog entries. The dispatch switch
// below is the closed registry; adding a name here without a case is a
// compile-time nudge via the catalog test.
type ToolName string

const (
	ToolSearchProjects ToolName = "search_projects"
	ToolSearchUsers    ToolName = "search_users"
	ToolCreateTask     ToolName = "create_task"
	ToolUpdateTask     ToolName = "update_task"
	ToolCreateProject  ToolName = "create_project"
	ToolLogAgentNote   ToolName = "log_agent_note"
)

const searchResultCap = 10

// ToolContext is the immutable authorization context passed to every tool
// invocation. Tools must never act outside this org.
type ToolContext struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
}

// Proposal is the result of a mutating tool. Nothing is written; the caller
// surfaces the proposal for human approval.
type Proposal struct {
	ApprovalRequired bool            `json:"approval_required"`
	Action           string          `json:"action"`
	Data             json.RawMessage `json:"data"`
	Message          string          `json:"message"`
}

// Toolset executes catalog tools against org-scoped storage.
type Toolset struct {
	projects    repository.ProjectRepositoryIface
	memberships repository.MembershipRepositoryIface
	tasks       repository.TaskRepositoryIface
}

func NewToolset(
	projects repository.ProjectRepositoryIface,
	memberships repository.MembershipRepositoryIface,
	tasks repository.TaskRepositoryIface,
) *Toolset {
	return &Toolset{projects: projects, memberships: memberships, tasks: tasks}
}

// Dispatch parses the declared arguments and runs the named tool. The
// returned bool reports whether the result is an approval-gated proposal.
func (t *Toolset) Dispatch(ctx context.Context, tc ToolContext, name string, args json.RawMessage) (interface{}, bool, error) {
	switch ToolName(name) {
	case ToolSearchProjects:
		var a searchArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		result, err := t.searchProjects(ctx, tc, a)
		return result, false, err

	case ToolSearchUsers:
		var a searchArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		result, err := t.searchUsers(ctx, tc, a)
		return result, false, err

	case ToolCreateTask:
		var a createTaskArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		if err := requireSameOrg(tc, a.OrgID); err != nil {
			return nil, false, err
		}
		return propose(string(ToolCreateTask), args, "Task creation requires approval"), true, nil

	case ToolUpdateTask:
		var a updateTaskArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		result, err := t.updateTask(ctx, tc, a, args)
		return result, err == nil, err

	case ToolCreateProject:
		var a createProjectArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		if err := requireSameOrg(tc, a.OrgID); err != nil {
			return nil, false, err
		}
		return propose(string(ToolCreateProject), args, "Project creation requires approval"), true, nil

	case ToolLogAgentNote:
		var a logNoteArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, false, fmt.Errorf("parsing %s arguments: %w", name, err)
		}
		// Acknowledgement only; notes are non-mutating and always allowed.
		return map[string]interface{}{
			"success": true,
			"note":    a.Note,
			"task_id": a.TaskID,
		}, false, nil

	default:
		return nil, false, fmt.Errorf("unknown tool: %s", name)
	}
}

type searchArgs struct {
	Query string `json:"query"`
	OrgID string `json:"org_id"`
}

type createTaskArgs struct {
	OrgID       string   `json:"org_id"`
	ProjectID   string   `json:"project_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    string   `json:"priority"`
	AssigneeID  string   `json:"assignee_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type updateTaskArgs struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

type createProjectArgs struct {
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
}

type logNoteArgs struct {
	TaskID string `json:"task_id,omitempty"`
	Note   string `json:"note"`
}

// requireSameOrg rejects caller-supplied org ids that differ from the
// authenticated context before any storage is touched.
func requireSameOrg(tc ToolContext, orgID string) error {
	parsed, err := uuid.Parse(orgID)
	if err != nil || parsed != tc.OrgID {
		return domain.ErrOrgMismatch
	}
	return nil
}

func propose(action string, args json.RawMessage, message string) Proposal {
	return Proposal{
		ApprovalRequired: true,
		Action:           action,
		Data:             args,
		Message:          message,
	}
}

type projectHit struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Status      model.ProjectStatus `json:"status"`
}

func (t *Toolset) searchProjects(ctx context.Context, tc ToolContext, a searchArgs) ([]projectHit, error) {
	if err := requireSameOrg(tc, a.OrgID); err != nil {
		return nil, err
	}

	projects, err := t.projects.SearchByName(ctx, tc.OrgID, a.Query, searchResultCap)
	if err != nil {
		return nil, err
	}

	hits := make([]projectHit, 0, len(projects))
	for _, p := range projects {
		hits = append(hits, projectHit{ID: p.ID, Name: p.Name, Description: p.Description, Status: p.Status})
	}
	return hits, nil
}

func (t *Toolset) searchUsers(ctx context.Context, tc ToolContext, a searchArgs) ([]model.UserRef, error) {
	if err := requireSameOrg(tc, a.OrgID); err != nil {
		return nil, err
	}
	return t.memberships.SearchUsersInOrg(ctx, tc.OrgID, a.Query, searchResultCap)
}

func (t *Toolset) updateTask(ctx context.Context, tc ToolContext, a updateTaskArgs, raw json.RawMessage) (interface{}, error) {
	taskID, err := uuid.Parse(a.TaskID)
	if err != nil {
		return nil, fmt.Errorf("invalid task_id: %w", err)
	}

	task, err := t.tasks.FindByID(ctx, taskID)
	if err != nil || task.OrgID != tc.OrgID {
		return nil, fmt.Errorf("task not found or access denied")
	}

	return propose(string(ToolUpdateTask), raw, "Task update requires approval"), nil
}

// Catalog returns the fixed tool declarations sent to the model.
func Catalog() []llm.Tool {
	return []llm.Tool{
		functionTool(ToolSearchProjects, "Search projects within the organization", `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"},
				"org_id": {"type": "string", "description": "Organization ID"}
			},
			"required": ["query", "org_id"],
			"additionalProperties": false
		}`),
		functionTool(ToolSearchUsers, "Search users within the organization by name or email", `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query (name or email)"},
				"org_id": {"type": "string", "description": "Organization ID"}
			},
			"required": ["query", "org_id"],
			"additionalProperties": false
		}`),
		functionTool(ToolCreateTask, "Create a new task", `{
			"type": "object",
			"properties": {
				"org_id": {"type": "string", "description": "Organization ID"},
				"project_id": {"type": "string", "description": "Project ID (optional)"},
				"title": {"type": "string", "description": "Task title"},
				"description": {"type": "string", "description": "Task description"},
				"due_date": {"type": "string", "description": "Due date (ISO 8601)"},
				"priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "URGENT"], "description": "Priority"},
				"assignee_id": {"type": "string", "description": "Assignee user ID"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Tags"}
			},
			"required": ["org_id", "title", "priority"],
			"additionalProperties": false
		}`),
		functionTool(ToolUpdateTask, "Update an existing task", `{
			"type": "object",
			"properties": {
				"task_id": {"type": "string", "description": "Task ID"},
				"title": {"type": "string", "description": "New title"},
				"description": {"type": "string", "description": "New description"},
				"status": {"type": "string", "enum": ["TODO", "IN_PROGRESS", "BLOCKED", "COMPLETED", "CANCELLED"], "description": "New status"},
				"priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "URGENT"], "description": "New priority"},
				"due_date": {"type": "string", "description": "New due date"},
				"assignee_id": {"type": "string", "description": "New assignee ID"}
			},
			"required": ["task_id"],
			"additionalProperties": false
		}`),
		functionTool(ToolCreateProject, "Create a new project", `{
			"type": "object",
			"properties": {
				"org_id": {"type": "string", "description": "Organization ID"},
				"name": {"type": "string", "description": "Project name"},
				"description": {"type": "string", "description": "Project description"},
				"owner_id": {"type": "string", "description": "Owner user ID"}
			},
			"required": ["org_id", "name", "owner_id"],
			"additionalProperties": false
		}`),
		functionTool(ToolLogAgentNote, "Record the agent's reasoning or rationale", `{
			"type": "object",
			"properties": {
				"task_id": {"type": "string", "description": "Related task ID"},
				"note": {"type": "string", "description": "Note content"}
			},
			"required": ["note"],
			"additionalProperties": false
		}`),
	}
}

func functionTool(name ToolName, description, params string) llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        string(name),
			Description: description,
			Parameters:  json.RawMessage(params),
		},
	}
}
