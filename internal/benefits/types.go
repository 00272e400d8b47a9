package benefits

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	"github.com/hrthis/hrthis-backend/pkg/types"
)

// BenefitDTO is the API shape of a ShopBenefit.
type BenefitDTO struct {
	ID           uuid.UUID             `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	CoinCost     int64                 `json:"coinCost"`
	Category     enums.BenefitCategory `json:"category"`
	IsActive     bool                  `json:"isActive"`
	StockLimit   *int                  `json:"stockLimit"`
	CurrentStock *int                  `json:"currentStock"`
	InStock      bool                  `json:"inStock"`
	CreatedAt    time.Time             `json:"createdAt"`
}

func FromModel(b models.ShopBenefit) BenefitDTO {
	return BenefitDTO{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		CoinCost:     b.CoinCost,
		Category:     b.Category,
		IsActive:     b.IsActive,
		StockLimit:   b.StockLimit,
		CurrentStock: b.CurrentStock,
		InStock:      !b.IsLimited() || (b.CurrentStock != nil && *b.CurrentStock > 0),
		CreatedAt:    b.CreatedAt,
	}
}

func FromModels(rows []models.ShopBenefit) []BenefitDTO {
	out := make([]BenefitDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// CreateBenefitInput carries a new catalog entry. A nil StockLimit means
// unlimited; CurrentStock defaults to StockLimit.
type CreateBenefitInput struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=2000"`
	CoinCost     int64                 `json:"coinCost" validate:"required,gt=0"`
	Category     enums.BenefitCategory `json:"category" validate:"required"`
	IsActive     *bool                 `json:"isActive"`
	StockLimit   *int                  `json:"stockLimit" validate:"omitempty,gte=0"`
	CurrentStock *int                  `json:"currentStock" validate:"omitempty,gte=0"`
}

// UpdateBenefitInput is a partial update. StockLimit distinguishes "absent"
// from an explicit null, which makes the benefit unlimited.
type UpdateBenefitInput struct {
	Title        *string                `json:"title" validate:"omitempty,max=200"`
	Description  *string                `json:"description" validate:"omitempty,max=2000"`
	CoinCost     *int64                 `json:"coinCost" validate:"omitempty,gt=0"`
	Category     *enums.BenefitCategory `json:"category"`
	IsActive     *bool                  `json:"isActive"`
	StockLimit   types.NullableInt      `json:"stockLimit"`
	CurrentStock *int                   `json:"currentStock" validate:"omitempty,gte=0"`
}
