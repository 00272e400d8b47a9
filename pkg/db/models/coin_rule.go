package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CoinRule is an admin-managed fixed-amount earning rule.
type CoinRule struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	CoinAmount  int64     `gorm:"column:coin_amount;not null;check:coin_rules_amount_positive,coin_amount > 0"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CoinRule) TableName() string { return "coin_rules" }

func (r *CoinRule) BeforeCreate(*gorm.DB) error {
	ensureIdentity(&r.ID, &r.CreatedAt)
	return nil
}
