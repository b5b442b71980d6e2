// internal/agent/tools_test.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
)

func newTestToolset(ctrl *gomock.Controller) (*Toolset, *mocks.MockProjectRepositoryIface, *mocks.MockMembershipRepositoryIface, *mocks.MockTaskRepositoryIface) {
	projects := mocks.NewMockProjectRepositoryIface(ctrl)
	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	tasks := mocks.NewMockTaskRepositoryIface(ctrl)
	return NewToolset(projects, memberships, tasks), projects, memberships, tasks
}

func TestDispatchSearchProjects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, projects, _, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	found := []*model.Project{
		{ID: uuid.New(), OrgID: tc.OrgID, Name: "Website Redesign", Status: model.ProjectActive},
	}
	projects.EXPECT().
		SearchByName(gomock.Any(), tc.OrgID, "website", searchResultCap).
		Return(found, nil)

	args, _ := json.Marshal(map[string]string{"query": "website", "org_id": tc.OrgID.String()})
	out, approval, err := ts.Dispatch(context.Background(), tc, "search_projects", args)
	assert.NoError(t, err)
	assert.False(t, approval)

	hits, ok := out.([]projectHit)
	assert.True(t, ok)
	assert.Len(t, hits, 1)
	assert.Equal(t, "Website Redesign", hits[0].Name)
}

func TestDispatchSearchUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, memberships, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	memberships.EXPECT().
		SearchUsersInOrg(gomock.Any(), tc.OrgID, "alice", searchResultCap).
		Return([]model.UserRef{{ID: uuid.New(), Name: "Alice"}}, nil)

	args, _ := json.Marshal(map[string]string{"query": "alice", "org_id": tc.OrgID.String()})
	out, approval, err := ts.Dispatch(context.Background(), tc, "search_users", args)
	assert.NoError(t, err)
	assert.False(t, approval)

	refs, ok := out.([]model.UserRef)
	assert.True(t, ok)
	assert.Len(t, refs, 1)
}

func TestDispatchCreateTaskProposesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No repository expectations: a create must never touch storage.
	ts, _, _, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	args, _ := json.Marshal(map[string]interface{}{
		"org_id":   tc.OrgID.String(),
		"title":    "Ship onboarding emails",
		"priority": "HIGH",
	})
	out, approval, err := ts.Dispatch(context.Background(), tc, "create_task", args)
	assert.NoError(t, err)
	assert.True(t, approval)

	proposal, ok := out.(Proposal)
	assert.True(t, ok)
	assert.True(t, proposal.ApprovalRequired)
	assert.Equal(t, "create_task", proposal.Action)
	assert.JSONEq(t, string(args), string(proposal.Data))
}

func TestDispatchCreateProjectProposesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	args, _ := json.Marshal(map[string]string{
		"org_id":   tc.OrgID.String(),
		"name":     "Q4 Launch",
		"owner_id": tc.UserID.String(),
	})
	out, approval, err := ts.Dispatch(context.Background(), tc, "create_project", args)
	assert.NoError(t, err)
	assert.True(t, approval)

	proposal, ok := out.(Proposal)
	assert.True(t, ok)
	assert.Equal(t, "create_project", proposal.Action)
}

func TestDispatchRejectsForeignOrg(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	for _, tool := range []string{"search_projects", "search_users", "create_task", "create_project"} {
		args, _ := json.Marshal(map[string]string{
			"org_id":   uuid.NewString(),
			"query":    "x",
			"title":    "x",
			"priority": "LOW",
			"name":     "x",
			"owner_id": tc.UserID.String(),
		})
		_, approval, err := ts.Dispatch(context.Background(), tc, tool, args)
		assert.ErrorIs(t, err, domain.ErrOrgMismatch, tool)
		assert.False(t, approval, tool)
	}
}

func TestDispatchUpdateTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, tasks := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}
	taskID := uuid.New()

	tasks.EXPECT().
		FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: tc.OrgID, Title: "Old"}, nil)

	args, _ := json.Marshal(map[string]string{"task_id": taskID.String(), "status": "COMPLETED"})
	out, approval, err := ts.Dispatch(context.Background(), tc, "update_task", args)
	assert.NoError(t, err)
	assert.True(t, approval)

	proposal, ok := out.(Proposal)
	assert.True(t, ok)
	assert.Equal(t, "update_task", proposal.Action)
}

func TestDispatchUpdateTaskCrossOrg(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, tasks := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}
	taskID := uuid.New()

	tasks.EXPECT().
		FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: uuid.New()}, nil)

	args, _ := json.Marshal(map[string]string{"task_id": taskID.String()})
	_, approval, err := ts.Dispatch(context.Background(), tc, "update_task", args)
	assert.Error(t, err)
	assert.False(t, approval)
	assert.Contains(t, err.Error(), "not found")
}

func TestDispatchLogAgentNote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, _ := newTestToolset(ctrl)
	tc := ToolContext{OrgID: uuid.New(), UserID: uuid.New()}

	args, _ := json.Marshal(map[string]string{"note": "chose HIGH because of the deadline"})
	out, approval, err := ts.Dispatch(context.Background(), tc, "log_agent_note", args)
	assert.NoError(t, err)
	assert.False(t, approval)

	ack, ok := out.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, true, ack["success"])
}

func TestDispatchUnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, _ := newTestToolset(ctrl)
	_, _, err := ts.Dispatch(context.Background(), ToolContext{}, "drop_database", json.RawMessage(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestDispatchBadArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _, _, _ := newTestToolset(ctrl)
	_, _, err := ts.Dispatch(context.Background(), ToolContext{}, "create_task", json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestCatalogMatchesDispatch(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 6)

	names := make(map[string]bool, len(catalog))
	for _, tool := range catalog {
		assert.Equal(t, "function", tool.Type)
		assert.NotEmpty(t, tool.Function.Description)
		assert.True(t, json.Valid(tool.Function.Parameters), tool.Function.Name)
		names[tool.Function.Name] = true
	}

	for _, want := range []ToolName{ToolSearchProjects, ToolSearchUsers, ToolCreateTask, ToolUpdateTask, ToolCreateProject, ToolLogAgentNote} {
		assert.True(t, names[string(want)], fmt.Sprintf("catalog missing %s", want))
	}
}
