// internal/handler/agent.go
package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/agent"
	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
)

type AgentHandler struct {
	orchestrator *agent.Orchestrator
	recorder     audit.Recorder
}

func NewAgentHandler(orchestrator *agent.Orchestrator, recorder audit.Recorder) *AgentHandler {
	return &AgentHandler{orchestrator: orchestrator, recorder: recorder}
}

type agentRunRequest struct {
	AgentType string     `json:"agent_type"`
	Input     string     `json:"input"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

type AgentRunResponse struct {
	BaseResponse
	Run *agent.RunResult `json:"run"`
}

// RunHandler executes one agent request synchronously. The run record is
// persisted regardless of the outcome; clients poll-free, the final state
// comes back in the response.
func (h *AgentHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var req agentRunRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.orchestrator.Run(r.Context(), agent.RunInput{
		Type:      model.AgentType(req.AgentType),
		Input:     req.Input,
		OrgID:     ac.OrgID,
		UserID:    ac.User.ID,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionRun, model.ResourceAgentRun, &result.RunID,
		map[string]interface{}{
			"agent_type":        req.AgentType,
			"status":            result.Status,
			"approval_required": result.ApprovalRequired,
		}, r)

	respondWithJSON(w, http.StatusOK, AgentRunResponse{
		BaseResponse: BaseResponse{Ok: true},
		Run:          result,
	})
}
