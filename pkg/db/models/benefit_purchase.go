package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/enums"
)

// BenefitPurchase is the fulfillment record created once a purchase commits.
type BenefitPurchase struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	BenefitID     uuid.UUID            `gorm:"column:benefit_id;type:uuid;not null;index"`
	TransactionID uuid.UUID            `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	CoinCost      int64                `gorm:"column:coin_cost;not null"`
	Status        enums.PurchaseStatus `gorm:"column:status;type:text;not null"`
	PurchasedAt   time.Time            `gorm:"column:purchased_at;not null"`
	DeliveredAt   *time.Time           `gorm:"column:delivered_at"`
	Notes         *string              `gorm:"column:notes"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (BenefitPurchase) TableName() string { return "benefit_purchases" }

func (p *BenefitPurchase) BeforeCreate(*gorm.DB) error {
	ensureIdentity(&p.ID, &p.PurchasedAt)
	if p.Status == "" {
		p.Status = enums.PurchaseStatusPending
	}
	return nil
}
