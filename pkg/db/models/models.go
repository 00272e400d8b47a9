package models

import (
	"time"

	"github.com/google/uuid"
)

// ensureIdentity fills in a generated id and UTC creation time when the caller
// left them empty.
func ensureIdentity(id *uuid.UUID, createdAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// All returns every persisted model, in dependency order.
func All() []any {
	return []any{
		&CoinTransaction{},
		&CoinRule{},
		&ShopBenefit{},
		&BenefitPurchase{},
		&CoinEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
