package balance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/pkg/db/dbtest"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
)

func TestComputeBalanceMatchesLedgerSum(t *testing.T) {
	client := dbtest.Open(t)
	repo := ledger.NewRepository(client.DB())
	svc, err := ledger.NewService(ledger.ServiceParams{
		Repo:   repo,
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	require.NoError(t, err)
	projector := NewProjector(repo)
	ctx := context.Background()

	userID := uuid.New()
	other := uuid.New()
	amounts := []struct {
		user   uuid.UUID
		amount int64
		kind   enums.CoinTransactionType
	}{
		{userID, 200, enums.CoinTransactionAdminGrant},
		{userID, 20, enums.CoinTransactionRuleEarned},
		{userID, -150, enums.CoinTransactionBenefitPurchase},
		{other, 500, enums.CoinTransactionAdminGrant},
	}
	for _, a := range amounts {
		entry := ledger.Entry{UserID: a.user, Amount: a.amount, Reason: "seed", Type: a.kind}
		ref := uuid.New()
		switch a.kind {
		case enums.CoinTransactionAdminGrant:
			entry.AdminID = &ref
		case enums.CoinTransactionRuleEarned:
			entry.RuleID = &ref
		default:
			entry.BenefitID = &ref
		}
		_, err := svc.Append(ctx, entry)
		require.NoError(t, err)
	}

	got, err := projector.ComputeBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, UserBalance{UserID: userID, TotalEarned: 220, TotalSpent: 150, CurrentBalance: 70}, got)

	rows, err := svc.Query(ctx, userID)
	require.NoError(t, err)
	var sum int64
	for _, row := range rows {
		sum += row.Amount
	}
	assert.Equal(t, sum, got.CurrentBalance)

	again, err := projector.ComputeBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestComputeBalanceEmptyLedgerIsZero(t *testing.T) {
	client := dbtest.Open(t)
	projector := NewProjector(ledger.NewRepository(client.DB()))

	userID := uuid.New()
	got, err := projector.ComputeBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, UserBalance{UserID: userID}, got)
}

type failingReader struct{}

func (failingReader) SumByUser(context.Context, *gorm.DB, uuid.UUID) (ledger.Totals, error) {
	return ledger.Totals{}, errors.New("db down")
}

func TestComputeBalanceErrors(t *testing.T) {
	projector := NewProjector(failingReader{})

	_, err := projector.ComputeBalance(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = projector.ComputeBalance(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
