package balance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/ledger"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// UserBalance is derived from the ledger on every read and never stored.
type UserBalance struct {
	UserID         uuid.UUID `json:"userId"`
	TotalEarned    int64     `json:"totalEarned"`
	TotalSpent     int64     `json:"totalSpent"`
	CurrentBalance int64     `json:"currentBalance"`
}

type totalsReader interface {
	SumByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (ledger.Totals, error)
}

// Projector reduces one user's ledger entries into a UserBalance.
type Projector struct {
	reader totalsReader
}

func NewProjector(reader totalsReader) *Projector {
	return &Projector{reader: reader}
}

// ComputeBalance reads outside any transaction.
func (p *Projector) ComputeBalance(ctx context.Context, userID uuid.UUID) (UserBalance, error) {
	return p.ComputeBalanceTx(ctx, nil, userID)
}

// ComputeBalanceTx reads through tx when it is non-nil.
func (p *Projector) ComputeBalanceTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (UserBalance, error) {
	if userID == uuid.Nil {
		return UserBalance{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	totals, err := p.reader.SumByUser(ctx, tx, userID)
	if err != nil {
		return UserBalance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute balance")
	}
	return UserBalance{
		UserID:         userID,
		TotalEarned:    totals.TotalEarned,
		TotalSpent:     totals.TotalSpent,
		CurrentBalance: totals.TotalEarned - totals.TotalSpent,
	}, nil
}
