package benefits

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// Service is the benefit catalog.
type Service interface {
	ListActive(ctx context.Context) ([]models.ShopBenefit, error)
	ListByCategory(ctx context.Context, category enums.BenefitCategory) ([]models.ShopBenefit, error)
	ListAll(ctx context.Context) ([]models.ShopBenefit, error)
	// Get resolves inactive benefits too, for history and admin views.
	Get(ctx context.Context, id uuid.UUID) (*models.ShopBenefit, error)
	// GetActive fails NotFound for inactive benefits.
	GetActive(ctx context.Context, id uuid.UUID) (*models.ShopBenefit, error)
	Create(ctx context.Context, input CreateBenefitInput) (*models.ShopBenefit, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateBenefitInput) (*models.ShopBenefit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "benefit repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.ShopBenefit, error) {
	rows, err := s.repo.ListActive(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list benefits")
	}
	return rows, nil
}

func (s *service) ListByCategory(ctx context.Context, category enums.BenefitCategory) ([]models.ShopBenefit, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid benefit category").
			WithDetails(map[string]any{"category": category})
	}
	rows, err := s.repo.ListActive(ctx, &category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list benefits")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.ShopBenefit, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list benefits")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ShopBenefit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "benefit id is required")
	}
	benefit, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return benefit, nil
}

func (s *service) GetActive(ctx context.Context, id uuid.UUID) (*models.ShopBenefit, error) {
	benefit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !benefit.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "benefit not found")
	}
	return benefit, nil
}

func (s *service) Create(ctx context.Context, input CreateBenefitInput) (*models.ShopBenefit, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.CoinCost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin cost must be positive")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid benefit category").
			WithDetails(map[string]any{"category": input.Category})
	}

	benefit := &models.ShopBenefit{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		CoinCost:    input.CoinCost,
		Category:    input.Category,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	if input.StockLimit != nil {
		limit := *input.StockLimit
		current := limit
		if input.CurrentStock != nil {
			current = *input.CurrentStock
		}
		if err := validateStock(limit, current); err != nil {
			return nil, err
		}
		benefit.StockLimit = &limit
		benefit.CurrentStock = &current
	} else if input.CurrentStock != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "current stock requires a stock limit")
	}

	if err := s.repo.Create(ctx, benefit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create benefit")
	}
	return benefit, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateBenefitInput) (*models.ShopBenefit, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.CoinCost != nil {
		if *input.CoinCost <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin cost must be positive")
		}
		updates["coin_cost"] = *input.CoinCost
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid benefit category")
		}
		updates["category"] = *input.Category
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if err := stockUpdates(existing, input, updates); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return existing, nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

// Delete is logical: purchases and transactions keep resolving the benefit.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, id, UpdateBenefitInput{IsActive: &inactive})
	return err
}

// stockUpdates translates stock edits into column updates. Lowering a limit
// clamps current stock in SQL so a concurrent reservation is never overwritten.
func stockUpdates(existing *models.ShopBenefit, input UpdateBenefitInput, updates map[string]any) error {
	switch {
	case input.StockLimit.Valid && input.StockLimit.Value == nil:
		if input.CurrentStock != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "current stock requires a stock limit")
		}
		updates["stock_limit"] = nil
		updates["current_stock"] = nil

	case input.StockLimit.Valid:
		limit := *input.StockLimit.Value
		if input.CurrentStock != nil {
			if err := validateStock(limit, *input.CurrentStock); err != nil {
				return err
			}
			updates["stock_limit"] = limit
			updates["current_stock"] = *input.CurrentStock
			return nil
		}
		if err := validateStock(limit, 0); err != nil {
			return err
		}
		updates["stock_limit"] = limit
		updates["current_stock"] = gorm.Expr(
			"CASE WHEN current_stock IS NULL OR current_stock > ? THEN ? ELSE current_stock END", limit, limit,
		)

	case input.CurrentStock != nil:
		if !existing.IsLimited() {
			return pkgerrors.New(pkgerrors.CodeValidation, "current stock requires a stock limit")
		}
		if err := validateStock(*existing.StockLimit, *input.CurrentStock); err != nil {
			return err
		}
		updates["current_stock"] = *input.CurrentStock
	}
	return nil
}

func validateStock(limit, current int) error {
	if limit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock limit cannot be negative")
	}
	if current < 0 || current > limit {
		return pkgerrors.New(pkgerrors.CodeValidation, "current stock must be between 0 and the stock limit").
			WithDetails(map[string]any{"stockLimit": limit, "currentStock": current})
	}
	return nil
}

func mapLookupError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "benefit not found")
	case db.IsCheckViolation(err):
		// a concurrent purchase moved current_stock since the update was validated
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "stock changed concurrently, reload and retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load benefit")
}
