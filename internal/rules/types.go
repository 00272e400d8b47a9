package rules

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
)

// RuleDTO is the API shape of a CoinRule.
type RuleDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoinAmount  int64     `json:"coinAmount"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func FromModel(rule models.CoinRule) RuleDTO {
	return RuleDTO{
		ID:          rule.ID,
		Title:       rule.Title,
		Description: rule.Description,
		CoinAmount:  rule.CoinAmount,
		IsActive:    rule.IsActive,
		CreatedAt:   rule.CreatedAt,
	}
}

func FromModels(rows []models.CoinRule) []RuleDTO {
	out := make([]RuleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// CreateRuleInput carries the fields of a new rule. IsActive defaults to true.
type CreateRuleInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	CoinAmount  int64  `json:"coinAmount" validate:"required,gt=0"`
	IsActive    *bool  `json:"isActive"`
}

// UpdateRuleInput is a partial update; nil fields are left unchanged.
type UpdateRuleInput struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	CoinAmount  *int64  `json:"coinAmount" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"isActive"`
}
