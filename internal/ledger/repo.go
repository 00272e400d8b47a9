package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/repo"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/pagination"
)

const newestFirst = "created_at DESC, id DESC"

// Repository is the only code path that touches coin_transactions. Rows are
// inserted and read, never updated or deleted.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Totals are the signed sums of one user's ledger entries.
type Totals struct {
	TotalEarned int64 `gorm:"column:total_earned"`
	TotalSpent  int64 `gorm:"column:total_spent"`
}

// Insert appends one row using tx.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, row *models.CoinTransaction) error {
	return r.Conn(ctx, tx).Create(row).Error
}

// ListByUser returns the user's entries, most recent first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CoinTransaction, error) {
	var rows []models.CoinTransaction
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order(newestFirst).
		Find(&rows).Error
	return rows, err
}

// ListAll returns the whole ledger, most recent first.
func (r *Repository) ListAll(ctx context.Context) ([]models.CoinTransaction, error) {
	var rows []models.CoinTransaction
	err := r.DB(ctx).
		Order(newestFirst).
		Find(&rows).Error
	return rows, err
}

// ListPage returns up to limit+1 entries strictly older than cursor.
func (r *Repository) ListPage(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.CoinTransaction, error) {
	var rows []models.CoinTransaction
	err := r.DB(ctx).
		Scopes(pagination.OlderThan(cursor)).
		Order(newestFirst).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

// SumByUser aggregates the user's entries. A nil tx reads outside any transaction.
func (r *Repository) SumByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (Totals, error) {
	var totals Totals
	err := r.Conn(ctx, tx).
		Model(&models.CoinTransaction{}).
		Select(
			"CAST(COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS BIGINT) AS total_earned, "+
				"CAST(COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS BIGINT) AS total_spent",
		).
		Where("user_id = ?", userID).
		Scan(&totals).Error
	return totals, err
}
