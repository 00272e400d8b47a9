package purchases

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
)

// PurchaseDTO is the API shape of a BenefitPurchase.
type PurchaseDTO struct {
	ID            uuid.UUID            `json:"id"`
	UserID        uuid.UUID            `json:"userId"`
	BenefitID     uuid.UUID            `json:"benefitId"`
	TransactionID uuid.UUID            `json:"transactionId"`
	CoinCost      int64                `json:"coinCost"`
	Status        enums.PurchaseStatus `json:"status"`
	PurchasedAt   time.Time            `json:"purchasedAt"`
	DeliveredAt   *time.Time           `json:"deliveredAt,omitempty"`
	Notes         *string              `json:"notes,omitempty"`
}

func FromModel(p models.BenefitPurchase) PurchaseDTO {
	return PurchaseDTO{
		ID:            p.ID,
		UserID:        p.UserID,
		BenefitID:     p.BenefitID,
		TransactionID: p.TransactionID,
		CoinCost:      p.CoinCost,
		Status:        p.Status,
		PurchasedAt:   p.PurchasedAt,
		DeliveredAt:   p.DeliveredAt,
		Notes:         p.Notes,
	}
}

func FromModels(rows []models.BenefitPurchase) []PurchaseDTO {
	out := make([]PurchaseDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
