// internal/audit/recorder.go
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

// Recorder appends immutable audit records after permitted mutations.
type Recorder interface {
	// Record writes an audit entry. A nil auth context is a no-op. Failures
	// are logged as system errors and never abort the audited mutation.
	Record(ctx context.Context, ac *auth.Context, action, resource string, resourceID *uuid.UUID, metadata map[string]interface{}, req *http.Request)
}

// Ensure Service implements the Recorder interface.
var _ Recorder = (*Service)(nil)

type Service struct {
	repo repository.AuditLogRepositoryIface
}

func NewService(repo repository.AuditLogRepositoryIface) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, ac *auth.Context, action, resource string, resourceID *uuid.UUID, metadata map[string]interface{}, req *http.Request) {
	if ac == nil {
		return
	}

	userID := ac.User.ID
	entry := &model.AuditLog{
		OrgID:      ac.OrgID,
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Metadata:   model.JSONMap(metadata),
	}

	if req != nil {
		entry.IPAddress = clientIP(req)
		entry.UserAgent = req.UserAgent()
		entry.RequestID = middleware.GetReqID(ctx)
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "audit log write failed",
			"error", err,
			"action", action,
			"resource", resource,
			"org_id", ac.OrgID,
		)
	}
}

// clientIP extracts the originating address from forwarded headers, falling
// back to the socket address.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client.
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := req.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return req.RemoteAddr
}

// Query exposes the org-scoped audit trail for admin review.
func (s *Service) Query(ctx context.Context, orgID uuid.UUID, params repository.AuditQueryParams) ([]model.AuditLog, int64, error) {
	return s.repo.Query(ctx, orgID, params)
}
