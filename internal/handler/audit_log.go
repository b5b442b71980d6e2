// internal/handler/audit_log.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
)

type AuditLogHandler struct {
	auditService *audit.Service
}

func NewAuditLogHandler(auditService *audit.Service) *AuditLogHandler {
	return &AuditLogHandler{auditService: auditService}
}

type AuditLogListResponse struct {
	BaseResponse
	Logs  []model.AuditLog `json:"logs"`
	Total int64            `json:"total"`
}

// QueryHandler lists the org's audit trail. ADMIN only; the trail exposes
// every member's activity.
func (h *AuditLogHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	if d := rbac.RequireRole(ac, model.RoleAdmin); !d.Allowed {
		respondWithError(w, http.StatusForbidden, d.Reason)
		return
	}

	q := r.URL.Query()
	params := repository.AuditQueryParams{
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
	}
	if raw := q.Get("resource_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid resource id")
			return
		}
		params.ResourceID = &id
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		params.UserID = &id
	}
	if raw := q.Get("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid start time")
			return
		}
		params.StartTime = t
	}
	if raw := q.Get("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid end time")
			return
		}
		params.EndTime = t
	}
	params.Limit, _ = strconv.Atoi(q.Get("limit"))
	params.Offset, _ = strconv.Atoi(q.Get("offset"))

	logs, total, err := h.auditService.Query(r.Context(), ac.OrgID, params)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AuditLogListResponse{
		BaseResponse: BaseResponse{Ok: true},
		Logs:         logs,
		Total:        total,
	})
}
