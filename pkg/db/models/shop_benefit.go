package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/enums"
)

// ShopBenefit is a redeemable catalog entry. A nil StockLimit means unlimited
// stock; otherwise CurrentStock stays within [0, StockLimit].
type ShopBenefit struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Title        string                `gorm:"column:title;not null"`
	Description  string                `gorm:"column:description;not null;default:''"`
	CoinCost     int64                 `gorm:"column:coin_cost;not null;check:shop_benefits_cost_positive,coin_cost > 0"`
	Category     enums.BenefitCategory `gorm:"column:category;type:text;not null;index"`
	IsActive     bool                  `gorm:"column:is_active;not null"`
	StockLimit   *int                  `gorm:"column:stock_limit"`
	CurrentStock *int                  `gorm:"column:current_stock;check:shop_benefits_stock_range,stock_limit IS NULL OR (current_stock >= 0 AND current_stock <= stock_limit)"`
	CreatedAt    time.Time             `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (ShopBenefit) TableName() string { return "shop_benefits" }

func (b *ShopBenefit) BeforeCreate(*gorm.DB) error {
	ensureIdentity(&b.ID, &b.CreatedAt)
	return nil
}

// IsLimited reports whether the benefit tracks stock.
func (b ShopBenefit) IsLimited() bool {
	return b.StockLimit != nil
}
