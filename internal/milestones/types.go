package milestones

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
)

// EventDTO is the API shape of a CoinEvent.
type EventDTO struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	RequiredCoins int64     `json:"requiredCoins"`
	Reward        string    `json:"reward"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

func FromModel(e models.CoinEvent) EventDTO {
	return EventDTO{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		RequiredCoins: e.RequiredCoins,
		Reward:        e.Reward,
		IsActive:      e.IsActive,
		CreatedAt:     e.CreatedAt,
	}
}

func FromModels(rows []models.CoinEvent) []EventDTO {
	out := make([]EventDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// CreateEventInput carries the fields of a new milestone. IsActive defaults to true.
type CreateEventInput struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required,max=2000"`
	RequiredCoins int64  `json:"requiredCoins" validate:"required,gt=0"`
	Reward        string `json:"reward" validate:"required,max=500"`
	IsActive      *bool  `json:"isActive"`
}

// UpdateEventInput is a partial update; nil fields are left unchanged.
type UpdateEventInput struct {
	Title         *string `json:"title" validate:"omitempty,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	RequiredCoins *int64  `json:"requiredCoins" validate:"omitempty,gt=0"`
	Reward        *string `json:"reward" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"isActive"`
}
