package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/enums"
)

// CoinsCreditedEvent is emitted for admin grants and rule earnings.
type CoinsCreditedEvent struct {
	TransactionID uuid.UUID                 `json:"transaction_id"`
	UserID        uuid.UUID                 `json:"user_id"`
	Amount        int64                     `json:"amount"`
	Reason        string                    `json:"reason"`
	Type          enums.CoinTransactionType `json:"type"`
	AdminID       *uuid.UUID                `json:"admin_id,omitempty"`
	RuleID        *uuid.UUID                `json:"rule_id,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// BenefitPurchasedEvent is emitted once a purchase commits.
type BenefitPurchasedEvent struct {
	PurchaseID    uuid.UUID `json:"purchase_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	BenefitID     uuid.UUID `json:"benefit_id"`
	BenefitTitle  string    `json:"benefit_title"`
	CoinCost      int64     `json:"coin_cost"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

// StockReservationReleasedEvent records a stock unit handed back because its
// purchase failed after the reservation.
type StockReservationReleasedEvent struct {
	BenefitID  uuid.UUID `json:"benefit_id"`
	UserID     uuid.UUID `json:"user_id"`
	Cause      string    `json:"cause"`
	ReleasedAt time.Time `json:"released_at"`
}

// PurchaseStatusChangedEvent is emitted by the fulfillment workflow.
type PurchaseStatusChangedEvent struct {
	PurchaseID uuid.UUID            `json:"purchase_id"`
	UserID     uuid.UUID            `json:"user_id"`
	BenefitID  uuid.UUID            `json:"benefit_id"`
	From       enums.PurchaseStatus `json:"from"`
	To         enums.PurchaseStatus `json:"to"`
	ActorID    uuid.UUID            `json:"actor_id"`
	Notes      *string              `json:"notes,omitempty"`
	ChangedAt  time.Time            `json:"changed_at"`
}
