package rules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/repo"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, rule *models.CoinRule) error {
	return r.DB(ctx).Create(rule).Error
}

// FindByID resolves active and inactive rules alike.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CoinRule, error) {
	var rule models.CoinRule
	if err := r.DB(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.CoinRule, error) {
	var rows []models.CoinRule
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CoinRule, error) {
	var rows []models.CoinRule
	err := r.DB(ctx).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Update applies column updates and reports gorm.ErrRecordNotFound when no row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return repo.UpdateByID[models.CoinRule](r.DB(ctx), id, updates)
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CoinRule{}).Count(&count).Error
	return count, err
}
