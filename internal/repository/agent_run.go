// internal/repository/agent_run.go
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

type AgentRunRepositoryIface interface {
	Create(ctx context.Context, run *model.AgentRun) error
	Update(ctx context.Context, run *model.AgentRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AgentRun, error)
}

type AgentRunRepository struct {
	db *gorm.DB
}

func NewAgentRunRepository(db *gorm.DB) *AgentRunRepository {
	return &AgentRunRepository{db: db}
}

func (r *AgentRunRepository) Create(ctx context.Context, run *model.AgentRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating agent run: %w", err)
	}
	return nil
}

func (r *AgentRunRepository) Update(ctx context.Context, run *model.AgentRun) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("updating agent run: %w", err)
	}
	return nil
}

func (r *AgentRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AgentRun, error) {
	var run model.AgentRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAgentRunNotFound
		}
		return nil, fmt.Errorf("finding agent run: %w", err)
	}
	return &run, nil
}
