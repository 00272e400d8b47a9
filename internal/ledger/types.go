package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	"github.com/hrthis/hrthis-backend/pkg/pagination"
)

// TransactionDTO is the API shape of a CoinTransaction.
type TransactionDTO struct {
	ID        uuid.UUID                 `json:"id"`
	UserID    uuid.UUID                 `json:"userId"`
	Amount    int64                     `json:"amount"`
	Reason    string                    `json:"reason"`
	Type      enums.CoinTransactionType `json:"type"`
	AdminID   *uuid.UUID                `json:"adminId,omitempty"`
	BenefitID *uuid.UUID                `json:"benefitId,omitempty"`
	RuleID    *uuid.UUID                `json:"ruleId,omitempty"`
	CreatedAt time.Time                 `json:"createdAt"`
}

func FromModel(t models.CoinTransaction) TransactionDTO {
	return TransactionDTO{
		ID:        t.ID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Reason:    t.Reason,
		Type:      t.Type,
		AdminID:   t.AdminID,
		BenefitID: t.BenefitID,
		RuleID:    t.RuleID,
		CreatedAt: t.CreatedAt,
	}
}

func FromModels(rows []models.CoinTransaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// TransactionPage is one cursor page of the admin ledger view.
type TransactionPage struct {
	Items      []TransactionDTO `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func PageFromModels(page pagination.Page[models.CoinTransaction]) TransactionPage {
	return TransactionPage{Items: FromModels(page.Items), NextCursor: page.NextCursor}
}
