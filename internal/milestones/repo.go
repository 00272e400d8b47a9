package milestones

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

func (r *Repository) Create(ctx context.Context, event *models.CoinEvent) error {
	return r.DB(ctx).Create(event).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CoinEvent, error) {
	var event models.CoinEvent
	if err := r.DB(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListActive returns active events by ascending threshold.
func (r *Repository) ListActive(ctx context.Context) ([]models.CoinEvent, error) {
	var rows []models.CoinEvent
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("required_coins ASC, created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CoinEvent, error) {
	var rows []models.CoinEvent
	err := r.DB(ctx).Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

// ListUnlocked returns active events whose threshold is at most balance.
func (r *Repository) ListUnlocked(ctx context.Context, balance int64) ([]models.CoinEvent, error) {
	var rows []models.CoinEvent
	err := r.DB(ctx).
		Where("is_active = ? AND required_coins <= ?", true, balance).
		Order("required_coins ASC, created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// FindNext returns the lowest active threshold above balance, or
// gorm.ErrRecordNotFound when every event is already unlocked.
func (r *Repository) FindNext(ctx context.Context, balance int64) (*models.CoinEvent, error) {
	var event models.CoinEvent
	err := r.DB(ctx).
		Where("is_active = ? AND required_coins > ?", true, balance).
		Order("required_coins ASC, created_at ASC, id ASC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return repo.UpdateByID[models.CoinEvent](r.DB(ctx), id, updates)
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CoinEvent{}).Count(&count).Error
	return count, err
}
