package benefits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/repo"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, benefit *models.ShopBenefit) error {
	return r.DB(ctx).Create(benefit).Error
}

// FindByID resolves active and inactive benefits. A nil tx reads outside any transaction.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ShopBenefit, error) {
	var benefit models.ShopBenefit
	if err := r.Conn(ctx, tx).Where("id = ?", id).First(&benefit).Error; err != nil {
		return nil, err
	}
	return &benefit, nil
}

// ListActive returns active benefits, optionally narrowed to one category.
func (r *Repository) ListActive(ctx context.Context, category *enums.BenefitCategory) ([]models.ShopBenefit, error) {
	query := r.DB(ctx).Where("is_active = ?", true)
	if category != nil {
		query = query.Where("category = ?", *category)
	}
	var rows []models.ShopBenefit
	err := query.Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.ShopBenefit, error) {
	var rows []models.ShopBenefit
	err := r.DB(ctx).Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

// ListLimited returns every benefit that tracks stock.
func (r *Repository) ListLimited(ctx context.Context) ([]models.ShopBenefit, error) {
	var rows []models.ShopBenefit
	err := r.DB(ctx).Where("stock_limit IS NOT NULL").Order("id").Find(&rows).Error
	return rows, err
}

// Update applies column updates and reports gorm.ErrRecordNotFound when no row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return repo.UpdateByID[models.ShopBenefit](r.DB(ctx), id, updates)
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ShopBenefit{}).Count(&count).Error
	return count, err
}

// DecrementStock takes one unit from a limited, in-stock benefit in a single
// conditional statement. It returns the number of rows changed (0 or 1).
func (r *Repository) DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := r.Conn(ctx, tx).
		Model(&models.ShopBenefit{}).
		Where("id = ? AND stock_limit IS NOT NULL AND current_stock > 0", id).
		Updates(map[string]any{
			"current_stock": gorm.Expr("current_stock - 1"),
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// IncrementStock returns one unit, never exceeding the limit.
func (r *Repository) IncrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := r.Conn(ctx, tx).
		Model(&models.ShopBenefit{}).
		Where("id = ? AND stock_limit IS NOT NULL AND current_stock < stock_limit", id).
		Updates(map[string]any{
			"current_stock": gorm.Expr("current_stock + 1"),
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
