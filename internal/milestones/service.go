package milestones

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// Service is the milestone engine. Thresholds are compared against a balance
// supplied by the caller.
type Service interface {
	ListActive(ctx context.Context) ([]models.CoinEvent, error)
	ListAll(ctx context.Context) ([]models.CoinEvent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CoinEvent, error)
	UnlockedFor(ctx context.Context, balance int64) ([]models.CoinEvent, error)
	// NextFor returns nil without error when nothing remains to unlock.
	NextFor(ctx context.Context, balance int64) (*models.CoinEvent, error)
	Create(ctx context.Context, input CreateEventInput) (*models.CoinEvent, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*models.CoinEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.CoinEvent, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.CoinEvent, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CoinEvent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return event, nil
}

func (s *service) UnlockedFor(ctx context.Context, balance int64) ([]models.CoinEvent, error) {
	rows, err := s.repo.ListUnlocked(ctx, balance)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unlocked events")
	}
	return rows, nil
}

func (s *service) NextFor(ctx context.Context, balance int64) (*models.CoinEvent, error) {
	event, err := s.repo.FindNext(ctx, balance)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find next event")
	}
	return event, nil
}

func (s *service) Create(ctx context.Context, input CreateEventInput) (*models.CoinEvent, error) {
	event := &models.CoinEvent{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		RequiredCoins: input.RequiredCoins,
		Reward:        strings.TrimSpace(input.Reward),
		IsActive:      input.IsActive == nil || *input.IsActive,
	}
	switch {
	case event.Title == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case event.Description == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case event.Reward == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward is required")
	case event.RequiredCoins <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "required coins must be positive")
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create event")
	}
	return event, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*models.CoinEvent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	updates := map[string]any{}
	texts := []struct {
		column string
		value  *string
	}{
		{"title", input.Title},
		{"description", input.Description},
		{"reward", input.Reward},
	}
	for _, text := range texts {
		if text.value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*text.value)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, text.column+" cannot be empty")
		}
		updates[text.column] = trimmed
	}
	if input.RequiredCoins != nil {
		if *input.RequiredCoins <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "required coins must be positive")
		}
		updates["required_coins"] = *input.RequiredCoins
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, id, UpdateEventInput{IsActive: &inactive})
	return err
}

// Progress is the share of next's threshold covered by balance, in percent,
// capped at 100. A nil next reports 100.
func Progress(balance int64, next *models.CoinEvent) float64 {
	if next == nil || next.RequiredCoins <= 0 {
		return 100
	}
	if balance <= 0 {
		return 0
	}
	pct := float64(balance) / float64(next.RequiredCoins) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "event not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
}

// Partition splits active events, sorted by ascending threshold, into those
// unlocked at balance and the next one to reach.
func Partition(active []models.CoinEvent, balance int64) ([]models.CoinEvent, *models.CoinEvent) {
	unlocked := make([]models.CoinEvent, 0, len(active))
	var next *models.CoinEvent
	for i := range active {
		event := active[i]
		if !event.IsActive {
			continue
		}
		if event.RequiredCoins <= balance {
			unlocked = append(unlocked, event)
			continue
		}
		if next == nil || event.RequiredCoins < next.RequiredCoins {
			next = &event
		}
	}
	return unlocked, next
}
