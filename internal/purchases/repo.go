package purchases

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

// Create inserts a purchase inside the caller's transaction.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, purchase *models.BenefitPurchase) error {
	return r.Conn(ctx, tx).Create(purchase).Error
}

func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.BenefitPurchase, error) {
	var purchase models.BenefitPurchase
	if err := r.Conn(ctx, tx).Where("id = ?", id).First(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BenefitPurchase, error) {
	var rows []models.BenefitPurchase
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.BenefitPurchase, error) {
	var rows []models.BenefitPurchase
	err := r.DB(ctx).Order("purchased_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

// ListByStatus returns purchases in one status, oldest first, for fulfillment queues.
func (r *Repository) ListByStatus(ctx context.Context, status enums.PurchaseStatus) ([]models.BenefitPurchase, error) {
	var rows []models.BenefitPurchase
	err := r.DB(ctx).
		Where("status = ?", status).
		Order("purchased_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// CompareAndSetStatus moves a purchase out of from only if it is still in
// from. It returns the number of rows changed (0 or 1).
func (r *Repository) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from enums.PurchaseStatus, updates map[string]any) (int64, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.Conn(ctx, tx).
		Model(&models.BenefitPurchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ListUnmatched returns purchases whose transaction is missing or does not
// debit the purchaser by exactly the recorded cost.
func (r *Repository) ListUnmatched(ctx context.Context) ([]models.BenefitPurchase, error) {
	var rows []models.BenefitPurchase
	err := r.DB(ctx).
		Table("benefit_purchases AS bp").
		Select("bp.*").
		Joins("LEFT JOIN coin_transactions ct ON ct.id = bp.transaction_id").
		Where("ct.id IS NULL OR ct.type <> ? OR ct.amount <> -bp.coin_cost OR ct.user_id <> bp.user_id",
			enums.CoinTransactionBenefitPurchase).
		Order("bp.purchased_at ASC, bp.id ASC").
		Find(&rows).Error
	return rows, err
}
