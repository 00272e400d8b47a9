package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/enums"
)

// CoinTransaction is one immutable, signed entry of the coin ledger.
type CoinTransaction struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index:idx_coin_transactions_user_created,priority:1"`
	Amount    int64                     `gorm:"column:amount;not null;check:coin_transactions_amount_nonzero,amount <> 0"`
	Reason    string                    `gorm:"column:reason;not null"`
	Type      enums.CoinTransactionType `gorm:"column:type;type:text;not null"`
	AdminID   *uuid.UUID                `gorm:"column:admin_id;type:uuid"`
	BenefitID *uuid.UUID                `gorm:"column:benefit_id;type:uuid"`
	RuleID    *uuid.UUID                `gorm:"column:rule_id;type:uuid"`
	CreatedAt time.Time                 `gorm:"column:created_at;not null;index:idx_coin_transactions_user_created,priority:2"`
}

func (CoinTransaction) TableName() string { return "coin_transactions" }

func (t *CoinTransaction) BeforeCreate(*gorm.DB) error {
	ensureIdentity(&t.ID, &t.CreatedAt)
	return nil
}
