package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CoinEvent is a milestone unlocked once a balance reaches RequiredCoins.
type CoinEvent struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title         string    `gorm:"column:title;not null"`
	Description   string    `gorm:"column:description;not null;default:''"`
	RequiredCoins int64     `gorm:"column:required_coins;not null;check:coin_events_required_positive,required_coins > 0"`
	Reward        string    `gorm:"column:reward;not null"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CoinEvent) TableName() string { return "coin_events" }

func (e *CoinEvent) BeforeCreate(*gorm.DB) error {
	ensureIdentity(&e.ID, &e.CreatedAt)
	return nil
}
