// internal/repository/embed.go
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

type EmbedRepositoryIface interface {
	Create(ctx context.Context, widget *model.EmbedWidget) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EmbedWidget, error)
	FindByOrg(ctx context.Context, orgID uuid.UUID) ([]*model.EmbedWidget, error)
	// CreateLog appends an access record. EmbedLog rows are write-once.
	CreateLog(ctx context.Context, log *model.EmbedLog) error
}

type EmbedRepository struct {
	db *gorm.DB
}

func NewEmbedRepository(db *gorm.DB) *EmbedRepository {
	return &EmbedRepository{db: db}
}

func (r *EmbedRepository) Create(ctx context.Context, widget *model.EmbedWidget) error {
	if err := r.db.WithContext(ctx).Create(widget).Error; err != nil {
		return fmt.Errorf("creating embed widget: %w", err)
	}
	return nil
}

func (r *EmbedRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EmbedWidget, error) {
	var widget model.EmbedWidget
	if err := r.db.WithContext(ctx).First(&widget, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWidgetNotFound
		}
		return nil, fmt.Errorf("finding embed widget: %w", err)
	}
	return &widget, nil
}

func (r *EmbedRepository) FindByOrg(ctx context.Context, orgID uuid.UUID) ([]*model.EmbedWidget, error) {
	var widgets []*model.EmbedWidget
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&widgets).Error
	if err != nil {
		return nil, fmt.Errorf("finding organization widgets: %w", err)
	}
	return widgets, nil
}

func (r *EmbedRepository) CreateLog(ctx context.Context, log *model.EmbedLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("creating embed log: %w", err)
	}
	return nil
}
