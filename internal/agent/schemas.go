// internal/agent/schemas.go
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/taskflowhq/taskflow/internal/model"
)

// Output shapes for each agent kind. The model is instructed to answer with
// a JSON object matching one of these; anything that fails validation fails
// the run, nothing is coerced.

type TaskDraft struct {
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description,omitempty"`
	CandidateProject   string   `json:"candidate_project,omitempty"`
	DueDateGuess       string   `json:"due_date_guess,omitempty"`
	PriorityGuess      string   `json:"priority_guess" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	AssigneeGuess      string   `json:"assignee_guess,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Confidence         float64  `json:"confidence" validate:"min=0,max=1"`
	Questions          []string `json:"questions,omitempty"`
	NeedsClarification bool     `json:"needs_clarification"`
}

type IntakeOutput struct {
	TaskDrafts []TaskDraft `json:"task_drafts" validate:"dive"`
	NextAction string      `json:"next_action" validate:"required,oneof=CREATE_TASKS ASK_CLARIFY PROPOSE_PROJECT"`
	Summary    string      `json:"summary,omitempty"`
	Reasoning  string      `json:"reasoning" validate:"required"`
}

type MilestoneTask struct {
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description,omitempty"`
	EstimatedHours     float64  `json:"estimated_hours,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	AssigneeSuggestion string   `json:"assignee_suggestion,omitempty"`
	Priority           string   `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

type Milestone struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	TargetDate  string          `json:"target_date,omitempty"`
	Tasks       []MilestoneTask `json:"tasks" validate:"dive"`
}

type Risk struct {
	Description string `json:"description" validate:"required"`
	Mitigation  string `json:"mitigation,omitempty"`
	Impact      string `json:"impact" validate:"required,oneof=LOW MEDIUM HIGH"`
}

type PlannerOutput struct {
	ProjectName         string      `json:"project_name" validate:"required"`
	ProjectDescription  string      `json:"project_description" validate:"required"`
	Objectives          []string    `json:"objectives"`
	Milestones          []Milestone `json:"milestones" validate:"dive"`
	Risks               []Risk      `json:"risks" validate:"dive"`
	Assumptions         []string    `json:"assumptions"`
	TotalEstimatedHours float64     `json:"total_estimated_hours,omitempty"`
	Reasoning           string      `json:"reasoning" validate:"required"`
}

type FocusItem struct {
	TaskID    string `json:"task_id,omitempty"`
	TaskTitle string `json:"task_title" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	Priority  string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

type DelayItem struct {
	TaskID          string  `json:"task_id,omitempty"`
	TaskTitle       string  `json:"task_title" validate:"required"`
	DaysOverdue     float64 `json:"days_overdue"`
	SuggestedAction string  `json:"suggested_action" validate:"required"`
}

type BlockerItem struct {
	TaskID          string `json:"task_id,omitempty"`
	TaskTitle       string `json:"task_title" validate:"required"`
	BlockerReason   string `json:"blocker_reason" validate:"required"`
	SuggestedAction string `json:"suggested_action" validate:"required"`
}

type Recommendation struct {
	Type           string   `json:"type" validate:"required,oneof=PRIORITIZE DELEGATE RESCHEDULE ESCALATE CLARIFY"`
	Description    string   `json:"description" validate:"required"`
	RelatedTaskIDs []string `json:"related_task_ids,omitempty"`
}

type OpsMetrics struct {
	TasksCompletedThisWeek int     `json:"tasks_completed_this_week"`
	TasksInProgress        int     `json:"tasks_in_progress"`
	TasksOverdue           int     `json:"tasks_overdue"`
	CompletionRate         float64 `json:"completion_rate"`
}

type OpsOutput struct {
	Date            string           `json:"date" validate:"required"`
	Summary         string           `json:"summary" validate:"required"`
	TodayFocus      []FocusItem      `json:"today_focus" validate:"dive"`
	Delays          []DelayItem      `json:"delays" validate:"dive"`
	Blockers        []BlockerItem    `json:"blockers" validate:"dive"`
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
	Metrics         *OpsMetrics      `json:"metrics,omitempty"`
}

type FilterSuggestion struct {
	Status       []string `json:"status,omitempty"`
	Priority     []string `json:"priority,omitempty"`
	DueDateRange string   `json:"due_date_range,omitempty"`
	Assignee     string   `json:"assignee,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
}

type SuggestedWidget struct {
	Name             string            `json:"name" validate:"required"`
	Type             string            `json:"type" validate:"required,oneof=MY_TASKS PROJECT SAVED_FILTER"`
	ViewMode         string            `json:"view_mode" validate:"required,oneof=LIST BOARD MINI_DASHBOARD"`
	Permissions      string            `json:"permissions" validate:"required,oneof=VIEW_ONLY OPERATIONS_ALLOWED"`
	FilterSuggestion *FilterSuggestion `json:"filter_suggestion,omitempty"`
}

type EmbedCopilotOutput struct {
	SuggestedWidget SuggestedWidget `json:"suggested_widget" validate:"required"`
	Explanation     string          `json:"explanation" validate:"required"`
	SecurityNotes   []string        `json:"security_notes"`
	NextSteps       []string        `json:"next_steps"`
}

// ParseOutput decodes and validates the model's final message for the given
// agent kind. Validation failures are returned verbatim so the run fails
// rather than persisting a malformed document.
func ParseOutput(validate *validator.Validate, agentType model.AgentType, data []byte) (interface{}, error) {
	var out interface{}
	switch agentType {
	case model.AgentIntake:
		out = &IntakeOutput{}
	case model.AgentPlanner:
		out = &PlannerOutput{}
	case model.AgentOps:
		out = &OpsOutput{}
	case model.AgentEmbedCopilot:
		out = &EmbedCopilotOutput{}
	default:
		return nil, fmt.Errorf("unknown agent type: %s", agentType)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("parsing agent output: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("validating agent output: %w", err)
	}
	return out, nil
}
