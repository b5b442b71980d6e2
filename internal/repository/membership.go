// internal/repository/membership.go
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

type MembershipRepositoryIface interface {
	Create(ctx context.Context, m *model.Membership) error
	// FindActiveByUser returns the user's active membership: the most
	// recently created row that is not soft-deleted.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Membership, error)
	FindActiveByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*model.Membership, error)
	// SearchUsersInOrg matches member names and emails case-insensitively.
	SearchUsersInOrg(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]model.UserRef, error)
}

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, m *model.Membership) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("creating membership: %w", err)
	}
	return nil
}

func (r *MembershipRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoMembership
		}
		return nil, fmt.Errorf("finding active membership: %w", err)
	}
	return &m, nil
}

func (r *MembershipRepository) FindActiveByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoMembership
		}
		return nil, fmt.Errorf("finding membership: %w", err)
	}
	return &m, nil
}

func (r *MembershipRepository) SearchUsersInOrg(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]model.UserRef, error) {
	var users []model.UserRef
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("users.id, users.name, users.email").
		Joins("JOIN memberships ON memberships.user_id = users.id").
		Where("memberships.org_id = ? AND memberships.deleted_at IS NULL", orgID).
		Where("users.name ILIKE ? OR users.email ILIKE ?", "%"+query+"%", "%"+query+"%").
		Limit(limit).
		Scan(&users).Error
	if err != nil {
		return nil, fmt.Errorf("searching organization users: %w", err)
	}
	return users, nil
}
