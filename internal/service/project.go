// internal/service/project.go
package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
)

type ProjectService struct {
	repo     repository.ProjectRepositoryIface
	checker  *rbac.Checker
	validate *validator.Validate
}

func NewProjectService(repo repository.ProjectRepositoryIface, checker *rbac.Checker) *ProjectService {
	return &ProjectService{repo: repo, checker: checker, validate: validator.New()}
}

type CreateProjectInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (s *ProjectService) Create(ctx context.Context, ac *auth.Context, input CreateProjectInput) (*model.Project, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionCreate, rbac.ResourceProject, nil)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	project := &model.Project{
		OrgID:       ac.OrgID,
		Name:        input.Name,
		Description: input.Description,
		Status:      model.ProjectActive,
		OwnerID:     ac.User.ID,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, ac *auth.Context, id uuid.UUID) (*model.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OrgID != ac.OrgID {
		return nil, domain.ErrProjectNotFound
	}
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, ac *auth.Context, status string) ([]*model.Project, error) {
	if status != "" && !model.ProjectStatus(status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.repo.FindByOrg(ctx, ac.OrgID, model.ProjectStatus(status))
}

type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (s *ProjectService) Update(ctx context.Context, ac *auth.Context, id uuid.UUID, input UpdateProjectInput) (*model.Project, error) {
	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionUpdate, rbac.ResourceProject, &id)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	project, err := s.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		status := model.ProjectStatus(*input.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *input.Status)
		}
		project.Status = status
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, ac *auth.Context, id uuid.UUID) error {
	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionDelete, rbac.ResourceProject, &id)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	if _, err := s.Get(ctx, ac, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
