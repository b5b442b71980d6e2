// internal/service/embed_widget.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
)

// embedTokenBytes is the entropy of a widget token; hex-encoded it is 64
// characters long.
const embedTokenBytes = 32

type EmbedWidgetService struct {
	repo        repository.EmbedRepositoryIface
	projectRepo repository.ProjectRepositoryIface
	validate    *validator.Validate
}

func NewEmbedWidgetService(repo repository.EmbedRepositoryIface, projectRepo repository.ProjectRepositoryIface) *EmbedWidgetService {
	return &EmbedWidgetService{repo: repo, projectRepo: projectRepo, validate: validator.New()}
}

type CreateWidgetInput struct {
	Name           string     `json:"name" validate:"required"`
	Type           string     `json:"type"`
	TargetType     string     `json:"target_type" validate:"required"`
	TargetID       *uuid.UUID `json:"target_id"`
	ViewMode       string     `json:"view_mode" validate:"required"`
	Permissions    string     `json:"permissions"`
	AllowedDomains []string   `json:"allowed_domains" validate:"required,min=1"`
	TokenTTLDays   int        `json:"token_ttl_days"`
}

// Create builds a widget for the caller's org. MANAGER can create view-only
// widgets; OPERATIONS_ALLOWED widgets require ADMIN because they expose
// write access to anonymous embed traffic.
func (s *EmbedWidgetService) Create(ctx context.Context, ac *auth.Context, input CreateWidgetInput) (*model.EmbedWidget, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if d := rbac.RequireRole(ac, model.RoleManager); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	permissions := model.PermViewOnly
	if input.Permissions != "" {
		permissions = model.EmbedPermissions(input.Permissions)
	}
	switch permissions {
	case model.PermViewOnly:
	case model.PermOperationsAllowed:
		if d := rbac.RequireRole(ac, model.RoleAdmin); !d.Allowed {
			return nil, fmt.Errorf("%w: only admins can create widgets that allow operations", domain.ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: unknown permissions %q", domain.ErrInvalidInput, input.Permissions)
	}

	targetType := model.EmbedTargetType(input.TargetType)
	switch targetType {
	case model.TargetProject:
		if input.TargetID == nil {
			return nil, fmt.Errorf("%w: target_id is required for PROJECT widgets", domain.ErrInvalidInput)
		}
		project, err := s.projectRepo.FindByID(ctx, *input.TargetID)
		if err != nil {
			return nil, err
		}
		if project.OrgID != ac.OrgID {
			return nil, domain.ErrProjectNotFound
		}
	case model.TargetMyTasks:
	case model.TargetSavedFilter:
		return nil, domain.ErrSavedFilterUnsupported
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", domain.ErrInvalidInput, input.TargetType)
	}

	widgetType := model.EmbedIframe
	if input.Type != "" {
		widgetType = model.EmbedType(input.Type)
		if widgetType != model.EmbedIframe && widgetType != model.EmbedJSWidget {
			return nil, fmt.Errorf("%w: unknown widget type %q", domain.ErrInvalidInput, input.Type)
		}
	}

	viewMode := model.EmbedViewMode(input.ViewMode)
	switch viewMode {
	case model.ViewList, model.ViewBoard, model.ViewMiniDashboard:
	default:
		return nil, fmt.Errorf("%w: unknown view mode %q", domain.ErrInvalidInput, input.ViewMode)
	}

	token, err := randomToken(embedTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating widget token: %w", err)
	}

	widget := &model.EmbedWidget{
		OrgID:          ac.OrgID,
		Name:           input.Name,
		Type:           widgetType,
		TargetType:     targetType,
		TargetID:       input.TargetID,
		ViewMode:       viewMode,
		Permissions:    permissions,
		AllowedDomains: input.AllowedDomains,
		Token:          token,
		IsActive:       true,
	}
	if input.TokenTTLDays > 0 {
		expires := time.Now().AddDate(0, 0, input.TokenTTLDays)
		widget.TokenExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, widget); err != nil {
		return nil, err
	}
	return widget, nil
}

// List returns the org's widgets. Widget rows carry the bearer token, so
// the surface is restricted to MANAGER and above like creation.
func (s *EmbedWidgetService) List(ctx context.Context, ac *auth.Context) ([]*model.EmbedWidget, error) {
	if d := rbac.RequireRole(ac, model.RoleManager); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}
	return s.repo.FindByOrg(ctx, ac.OrgID)
}

func (s *EmbedWidgetService) Get(ctx context.Context, ac *auth.Context, id uuid.UUID) (*model.EmbedWidget, error) {
	if d := rbac.RequireRole(ac, model.RoleManager); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}
	widget, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if widget.OrgID != ac.OrgID {
		return nil, domain.ErrWidgetNotFound
	}
	return widget, nil
}
