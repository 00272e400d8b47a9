package benefits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// Reservation is the handle returned by Reserve. Unlimited benefits yield a
// reservation with Limited=false whose release is a no-op.
type Reservation struct {
	BenefitID uuid.UUID
	Limited   bool
}

// StockController performs atomic check-and-decrement on benefit stock.
type StockController struct {
	repo *Repository
}

func NewStockController(repo *Repository) *StockController {
	return &StockController{repo: repo}
}

// Reserve takes one unit of stock. It fails NotFound for missing or inactive
// benefits and OutOfStock when a limited benefit has nothing left.
func (c *StockController) Reserve(ctx context.Context, tx *gorm.DB, benefitID uuid.UUID) (Reservation, error) {
	benefit, err := c.repo.FindByID(ctx, tx, benefitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "benefit not found")
		}
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load benefit")
	}
	if !benefit.IsActive {
		return Reservation{}, pkgerrors.New(pkgerrors.CodeNotFound, "benefit not found")
	}
	if !benefit.IsLimited() {
		return Reservation{BenefitID: benefitID}, nil
	}

	changed, err := c.repo.DecrementStock(ctx, tx, benefitID)
	if err != nil {
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if changed == 1 {
		return Reservation{BenefitID: benefitID, Limited: true}, nil
	}

	// The limit may have been lifted between the read and the update.
	latest, err := c.repo.FindByID(ctx, tx, benefitID)
	if err == nil && latest.IsActive && !latest.IsLimited() {
		return Reservation{BenefitID: benefitID}, nil
	}
	return Reservation{}, pkgerrors.New(pkgerrors.CodeOutOfStock, "benefit is out of stock").
		WithDetails(map[string]any{"benefitId": benefitID})
}

// Release returns a reserved unit. Releasing an unlimited reservation is a no-op.
func (c *StockController) Release(ctx context.Context, tx *gorm.DB, reservation Reservation) error {
	if !reservation.Limited {
		return nil
	}
	if _, err := c.repo.IncrementStock(ctx, tx, reservation.BenefitID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}
	return nil
}
