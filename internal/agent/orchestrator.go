// internal/agent/orchestrator.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/llm"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

// maxToolRounds bounds the chat/tool loop so a confused model cannot spin
// forever against storage.
const maxToolRounds = 8

// maxInputLen caps the user prompt, counted in runes so multibyte text gets
// the full budget.
const maxInputLen = 10000

// RunInput is one orchestration request.
type RunInput struct {
	Type      model.AgentType
	Input     string
	OrgID     uuid.UUID
	UserID    uuid.UUID
	ProjectID *uuid.UUID
}

// ToolTrace records one tool invocation for the run metadata.
type ToolTrace struct {
	Tool             string      `json:"tool"`
	Arguments        string      `json:"arguments"`
	Result           interface{} `json:"result,omitempty"`
	Error            string      `json:"error,omitempty"`
	ApprovalRequired bool        `json:"approval_required"`
}

// RunResult is the terminal outcome of a run.
type RunResult struct {
	RunID            uuid.UUID            `json:"run_id"`
	Status           model.AgentRunStatus `json:"status"`
	Output           interface{}          `json:"output,omitempty"`
	ApprovalRequired bool                 `json:"approval_required"`
	ToolCalls        []ToolTrace          `json:"tool_calls"`
	Usage            llm.Usage            `json:"usage"`
}

// Orchestrator drives the model through the tool loop and persists every run.
type Orchestrator struct {
	client   llm.ChatClient
	tools    *Toolset
	runs     repository.AgentRunRepositoryIface
	validate *validator.Validate
}

func NewOrchestrator(
	client llm.ChatClient,
	tools *Toolset,
	runs repository.AgentRunRepositoryIface,
	validate *validator.Validate,
) *Orchestrator {
	return &Orchestrator{client: client, tools: tools, runs: runs, validate: validate}
}

// Run executes one agent request end to end. The run record is created in
// RUNNING state before the first model call and updated exactly once with the
// terminal state, FAILED included, so org admins can always see what the
// agent did.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown agent type %q", domain.ErrInvalidInput, in.Type)
	}
	if in.Input == "" {
		return nil, fmt.Errorf("%w: input is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Input) > maxInputLen {
		return nil, fmt.Errorf("%w: input exceeds %d characters", domain.ErrInvalidInput, maxInputLen)
	}

	run := &model.AgentRun{
		OrgID:     in.OrgID,
		UserID:    in.UserID,
		AgentType: in.Type,
		Input:     in.Input,
		Status:    model.RunRunning,
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	result, runErr := o.execute(ctx, in, run.ID)
	if runErr != nil {
		run.Status = model.RunFailed
		run.Error = runErr.Error()
		if result != nil {
			run.Metadata = runMetadata(result)
		}
		if err := o.runs.Update(ctx, run); err != nil {
			slog.ErrorContext(ctx, "failed to persist failed agent run",
				slog.String("run_id", run.ID.String()), slog.Any("error", err))
		}
		return nil, runErr
	}

	result.RunID = run.ID
	run.Status = model.RunCompleted
	if result.ApprovalRequired {
		run.Status = model.RunApprovalRequired
	}
	result.Status = run.Status
	run.ApprovalRequired = result.ApprovalRequired
	run.Metadata = runMetadata(result)

	output, err := json.Marshal(result.Output)
	if err != nil {
		return nil, fmt.Errorf("marshaling agent output: %w", err)
	}
	run.Output = model.JSONRaw(output)

	if err := o.runs.Update(ctx, run); err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, in RunInput, runID uuid.UUID) (*RunResult, error) {
	tc := ToolContext{OrgID: in.OrgID, UserID: in.UserID}
	result := &RunResult{RunID: runID, ToolCalls: []ToolTrace{}}

	messages := []llm.Message{
		{Role: "system", Content: buildSystemPrompt(in.Type, PromptContext{
			OrgID:     in.OrgID,
			UserID:    in.UserID,
			ProjectID: in.ProjectID,
			Now:       time.Now(),
		})},
		{Role: "user", Content: in.Input},
	}

	req := llm.ChatRequest{
		Messages:   messages,
		Tools:      Catalog(),
		JSONObject: true,
	}

	var final string
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return result, fmt.Errorf("agent exceeded %d tool rounds", maxToolRounds)
		}

		resp, err := o.client.Chat(ctx, req)
		if err != nil {
			return result, err
		}
		result.Usage.Add(resp.Usage)

		if len(resp.Message.ToolCalls) == 0 {
			final = resp.Message.Content
			break
		}

		req.Messages = append(req.Messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			trace := ToolTrace{Tool: call.Function.Name, Arguments: call.Function.Arguments}

			out, approval, err := o.tools.Dispatch(ctx, tc, call.Function.Name, json.RawMessage(call.Function.Arguments))
			var content []byte
			if err != nil {
				trace.Error = err.Error()
				slog.WarnContext(ctx, "agent tool call failed",
					slog.String("run_id", runID.String()),
					slog.String("tool", call.Function.Name),
					slog.Any("error", err))
				// Feed the error back so the model can recover or re-plan.
				content, _ = json.Marshal(map[string]string{"error": err.Error()})
			} else {
				trace.Result = out
				trace.ApprovalRequired = approval
				if approval {
					result.ApprovalRequired = true
				}
				content, err = json.Marshal(out)
				if err != nil {
					return result, fmt.Errorf("marshaling tool result: %w", err)
				}
			}
			result.ToolCalls = append(result.ToolCalls, trace)

			req.Messages = append(req.Messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    string(content),
			})
		}
	}

	output, err := ParseOutput(o.validate, in.Type, []byte(final))
	if err != nil {
		return result, fmt.Errorf("invalid agent output: %w", err)
	}
	result.Output = output
	return result, nil
}

func runMetadata(r *RunResult) model.JSONMap {
	trace := make([]interface{}, 0, len(r.ToolCalls))
	for _, t := range r.ToolCalls {
		entry := map[string]interface{}{
			"tool":              t.Tool,
			"approval_required": t.ApprovalRequired,
		}
		if t.Error != "" {
			entry["error"] = t.Error
		}
		trace = append(trace, entry)
	}
	return model.JSONMap{
		"tool_calls": trace,
		"usage": map[string]interface{}{
			"prompt_tokens":     r.Usage.PromptTokens,
			"completion_tokens": r.Usage.CompletionTokens,
			"total_tokens":      r.Usage.TotalTokens,
		},
	}
}
