// internal/service/task.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
)

type TaskService struct {
	repo           repository.TaskRepositoryIface
	projectRepo    repository.ProjectRepositoryIface
	membershipRepo repository.MembershipRepositoryIface
	checker        *rbac.Checker
	validate       *validator.Validate
}

func NewTaskService(
	repo repository.TaskRepositoryIface,
	projectRepo repository.ProjectRepositoryIface,
	membershipRepo repository.MembershipRepositoryIface,
	checker *rbac.Checker,
) *TaskService {
	return &TaskService{
		repo:           repo,
		projectRepo:    projectRepo,
		membershipRepo: membershipRepo,
		checker:        checker,
		validate:       validator.New(),
	}
}

type CreateTaskInput struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ProjectID   *uuid.UUID `json:"project_id"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// Create validates inputs against the caller's org and persists the task.
// Referenced projects and assignees must belong to the same org.
func (s *TaskService) Create(ctx context.Context, ac *auth.Context, input CreateTaskInput) (*model.Task, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionCreate, rbac.ResourceTask, nil)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	task := &model.Task{
		OrgID:       ac.OrgID,
		Title:       input.Title,
		Description: input.Description,
		Status:      model.TaskTodo,
		Priority:    model.PriorityMedium,
		DueDate:     input.DueDate,
		Tags:        pq.StringArray(input.Tags),
	}

	if input.Status != "" {
		status := model.TaskStatus(input.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
		}
		task.Status = status
	}
	if input.Priority != "" {
		priority := model.TaskPriority(input.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, input.Priority)
		}
		task.Priority = priority
	}

	if input.ProjectID != nil {
		if err := s.verifyProjectInOrg(ctx, ac.OrgID, *input.ProjectID); err != nil {
			return nil, err
		}
		task.ProjectID = input.ProjectID
	}
	if input.AssigneeID != nil {
		if err := s.verifyAssigneeInOrg(ctx, ac.OrgID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if task.Status == model.TaskCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get loads a task inside the caller's org.
func (s *TaskService) Get(ctx context.Context, ac *auth.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OrgID != ac.OrgID {
		// Cross-org IDs look exactly like absent ones.
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

type ListTasksInput struct {
	Status     string
	ProjectID  *uuid.UUID
	AssigneeID *uuid.UUID
	Limit      int
	Offset     int
}

func (s *TaskService) List(ctx context.Context, ac *auth.Context, input ListTasksInput) ([]*model.Task, int64, error) {
	if input.Status != "" && !model.TaskStatus(input.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
	}
	filter := repository.TaskFilter{
		Status:     model.TaskStatus(input.Status),
		ProjectID:  input.ProjectID,
		AssigneeID: input.AssigneeID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	return s.repo.List(ctx, ac.OrgID, filter)
}

type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	ProjectID   *uuid.UUID `json:"project_id"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	Tags        *[]string  `json:"tags"`
}

// Update applies a partial update. CompletedAt tracks status transitions:
// set on entering COMPLETED, cleared on leaving it, untouched otherwise.
func (s *TaskService) Update(ctx context.Context, ac *auth.Context, id uuid.UUID, input UpdateTaskInput) (*model.Task, error) {
	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionUpdate, rbac.ResourceTask, &id)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		if d.Reason == "Task not found" {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	task, err := s.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		priority := model.TaskPriority(*input.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, *input.Priority)
		}
		task.Priority = priority
	}
	if input.Status != nil {
		status := model.TaskStatus(*input.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *input.Status)
		}
		if status == model.TaskCompleted && task.Status != model.TaskCompleted {
			now := time.Now()
			task.CompletedAt = &now
		}
		if status != model.TaskCompleted && task.Status == model.TaskCompleted {
			task.CompletedAt = nil
		}
		task.Status = status
	}
	if input.ProjectID != nil {
		if err := s.verifyProjectInOrg(ctx, ac.OrgID, *input.ProjectID); err != nil {
			return nil, err
		}
		task.ProjectID = input.ProjectID
	}
	if input.AssigneeID != nil {
		if err := s.verifyAssigneeInOrg(ctx, ac.OrgID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Tags != nil {
		task.Tags = pq.StringArray(*input.Tags)
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ac *auth.Context, id uuid.UUID) error {
	d, err := s.checker.CheckPermission(ctx, ac, rbac.ActionDelete, rbac.ResourceTask, &id)
	if err != nil {
		return err
	}
	if !d.Allowed {
		if d.Reason == "Task not found" {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
	}

	if _, err := s.Get(ctx, ac, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) verifyProjectInOrg(ctx context.Context, orgID, projectID uuid.UUID) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OrgID != orgID {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *TaskService) verifyAssigneeInOrg(ctx context.Context, orgID, userID uuid.UUID) error {
	_, err := s.membershipRepo.FindActiveByUserAndOrg(ctx, userID, orgID)
	if errors.Is(err, domain.ErrNoMembership) {
		return domain.ErrAssigneeNotInOrg
	}
	return err
}
