// internal/repository/task.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
)

// priorityOrder ranks text priorities for ordering; URGENT sorts first.
const priorityOrder = "CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC"

// TaskFilter narrows org-scoped task listings.
type TaskFilter struct {
	Status     model.TaskStatus
	ProjectID  *uuid.UUID
	AssigneeID *uuid.UUID
	Limit      int
	Offset     int
}

type TaskRepositoryIface interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, orgID uuid.UUID, filter TaskFilter) ([]*model.Task, int64, error)
	// ListForWidget returns org tasks for the embed surface, optionally
	// filtered by project, ordered by priority then due date, capped.
	ListForWidget(ctx context.Context, orgID uuid.UUID, projectID *uuid.UUID, limit int) ([]*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Assignee").
		First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("finding task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, orgID uuid.UUID, filter TaskFilter) ([]*model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("org_id = ?", orgID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var tasks []*model.Task
	err := query.
		Preload("Project").
		Preload("Assignee").
		Order(priorityOrder).
		Order("due_date ASC NULLS LAST").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}

	return tasks, count, nil
}

func (r *TaskRepository) ListForWidget(ctx context.Context, orgID uuid.UUID, projectID *uuid.UUID, limit int) ([]*model.Task, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	if limit <= 0 {
		limit = 50
	}

	var tasks []*model.Task
	err := query.
		Preload("Project").
		Preload("Assignee").
		Order(priorityOrder).
		Order("due_date ASC NULLS LAST").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("listing widget tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}
