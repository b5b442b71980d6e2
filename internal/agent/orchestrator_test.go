// internal/agent/orchestrator_test.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/llm"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
)

type orchestratorFixture struct {
	orch   *Orchestrator
	client *mocks.MockChatClient
	runs   *mocks.MockAgentRunRepositoryIface
	tasks  *mocks.MockTaskRepositoryIface
}

func newOrchestratorFixture(ctrl *gomock.Controller) *orchestratorFixture {
	client := mocks.NewMockChatClient(ctrl)
	runs := mocks.NewMockAgentRunRepositoryIface(ctrl)
	projects := mocks.NewMockProjectRepositoryIface(ctrl)
	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	tasks := mocks.NewMockTaskRepositoryIface(ctrl)

	tools := NewToolset(projects, memberships, tasks)
	return &orchestratorFixture{
		orch:   NewOrchestrator(client, tools, runs, validator.New()),
		client: client,
		runs:   runs,
		tasks:  tasks,
	}
}

// expectRunCreated assigns an id on insert, the way gorm would.
func (f *orchestratorFixture) expectRunCreated() uuid.UUID {
	runID := uuid.New()
	f.runs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.AgentRun) error {
			run.ID = runID
			return nil
		})
	return runID
}

func finalMessage(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:      llm.Message{Role: "assistant", Content: content},
		FinishReason: "stop",
		Usage:        llm.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

func toolCallMessage(id, name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message: llm.Message{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:       id,
				Type:     "function",
				Function: llm.FunctionCall{Name: name, Arguments: args},
			}},
		},
		FinishReason: "tool_calls",
		Usage:        llm.Usage{PromptTokens: 200, CompletionTokens: 30, TotalTokens: 230},
	}
}

const intakeOutput = `{
	"task_drafts": [{
		"title": "Fix login redirect",
		"priority_guess": "HIGH",
		"confidence": 0.9,
		"needs_clarification": false
	}],
	"next_action": "CREATE_TASKS",
	"reasoning": "Single clear bug report."
}`

func TestRunCompletesWithoutTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	runID := f.expectRunCreated()

	f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(finalMessage(intakeOutput), nil)

	var saved model.AgentRun
	f.runs.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.AgentRun) error {
			saved = *run
			return nil
		})

	result, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  "login page redirects to a blank screen",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, model.RunCompleted, result.Status)
	assert.False(t, result.ApprovalRequired)
	assert.Equal(t, 150, result.Usage.TotalTokens)

	out, ok := result.Output.(*IntakeOutput)
	assert.True(t, ok)
	assert.Equal(t, "CREATE_TASKS", out.NextAction)

	assert.Equal(t, model.RunCompleted, saved.Status)
	assert.NotEmpty(t, saved.Output)
}

func TestRunApprovalRequiredFromToolCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	orgID := uuid.New()
	createArgs := `{"org_id":"` + orgID.String() + `","title":"Fix login redirect","priority":"HIGH"}`

	gomock.InOrder(
		f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
			Return(toolCallMessage("call_1", "create_task", createArgs), nil),
		f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				// Tool result is fed back as a tool-role message.
				last := req.Messages[len(req.Messages)-1]
				assert.Equal(t, "tool", last.Role)
				assert.Equal(t, "call_1", last.ToolCallID)
				assert.Contains(t, last.Content, "approval_required")
				return finalMessage(intakeOutput), nil
			}),
	)

	var saved model.AgentRun
	f.runs.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.AgentRun) error {
			saved = *run
			return nil
		})

	result, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  "create a task for the login bug",
		OrgID:  orgID,
		UserID: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, model.RunApprovalRequired, result.Status)
	assert.True(t, result.ApprovalRequired)
	assert.Len(t, result.ToolCalls, 1)
	assert.True(t, result.ToolCalls[0].ApprovalRequired)
	assert.Equal(t, 380, result.Usage.TotalTokens)

	assert.Equal(t, model.RunApprovalRequired, saved.Status)
	assert.True(t, saved.ApprovalRequired)
}

func TestRunFeedsToolErrorBackToModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	// The model asks for a task in another org. The tool refuses and the
	// refusal is surfaced so the model can re-plan instead of the run dying.
	foreignArgs := `{"org_id":"` + uuid.NewString() + `","title":"x","priority":"LOW"}`

	gomock.InOrder(
		f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
			Return(toolCallMessage("call_1", "create_task", foreignArgs), nil),
		f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
				last := req.Messages[len(req.Messages)-1]
				assert.Equal(t, "tool", last.Role)
				assert.Contains(t, last.Content, "error")
				return finalMessage(intakeOutput), nil
			}),
	)
	f.runs.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  "file this bug",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, result.Status)
	assert.False(t, result.ApprovalRequired)
	assert.Len(t, result.ToolCalls, 1)
	assert.Equal(t, domain.ErrOrgMismatch.Error(), result.ToolCalls[0].Error)
}

func TestRunInvalidOutputPersistsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	// Missing required reasoning field.
	f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
		Return(finalMessage(`{"task_drafts": [], "next_action": "CREATE_TASKS"}`), nil)

	var saved model.AgentRun
	f.runs.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.AgentRun) error {
			saved = *run
			return nil
		})

	result, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  "anything",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid agent output")

	assert.Equal(t, model.RunFailed, saved.Status)
	assert.NotEmpty(t, saved.Error)
}

func TestRunModelFailurePersisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrModelUnavailable)

	var saved model.AgentRun
	f.runs.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.AgentRun) error {
			saved = *run
			return nil
		})

	_, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentOps,
		Input:  "daily standup",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, model.RunFailed, saved.Status)
}

func TestRunToolRoundLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	// The model keeps asking for the same note, never finishing.
	f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).
		Return(toolCallMessage("call_n", "log_agent_note", `{"note":"thinking"}`), nil).
		Times(maxToolRounds)
	f.runs.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentPlanner,
		Input:  "plan forever",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tool rounds")
}

func TestRunRejectsInvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)

	_, err := f.orch.Run(context.Background(), RunInput{Type: "JANITOR", Input: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orch.Run(context.Background(), RunInput{Type: model.AgentIntake})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	long := strings.Repeat("a", maxInputLen+1)
	_, err = f.orch.Run(context.Background(), RunInput{Type: model.AgentIntake, Input: long})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tooManyRunes := strings.Repeat("あ", maxInputLen+1)
	_, err = f.orch.Run(context.Background(), RunInput{Type: model.AgentIntake, Input: tooManyRunes})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunCountsInputInRunes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.expectRunCreated()

	f.client.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(finalMessage(intakeOutput), nil)
	f.runs.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	// maxInputLen runes of multibyte text exceed maxInputLen bytes but stay
	// within the character budget.
	input := strings.Repeat("あ", maxInputLen)
	_, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  input,
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.NoError(t, err)
}

func TestRunCreateFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(ctrl)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := f.orch.Run(context.Background(), RunInput{
		Type:   model.AgentIntake,
		Input:  "x",
		OrgID:  uuid.New(),
		UserID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestRunMetadataCapturesTrace(t *testing.T) {
	r := &RunResult{
		ToolCalls: []ToolTrace{
			{Tool: "search_projects"},
			{Tool: "create_task", ApprovalRequired: true},
			{Tool: "create_task", Error: "org mismatch"},
		},
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	meta := runMetadata(r)

	trace, ok := meta["tool_calls"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, trace, 3)

	raw, err := json.Marshal(meta)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), "org mismatch")
}
