package coins

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrthis/hrthis-backend/internal/balance"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/internal/rules"
	"github.com/hrthis/hrthis-backend/pkg/db/dbtest"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
)

type fixture struct {
	coins      Service
	rules      rules.Service
	benefits   benefits.Service
	milestones milestones.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	ledgerRepo := ledger.NewRepository(client.DB())
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo, Tx: client, Outbox: emitter})
	require.NoError(t, err)
	projector := balance.NewProjector(ledgerRepo)

	ruleSvc, err := rules.NewService(rules.ServiceParams{Repo: rules.NewRepository(client.DB()), Ledger: ledgerSvc})
	require.NoError(t, err)

	benefitRepo := benefits.NewRepository(client.DB())
	catalog, err := benefits.NewService(benefitRepo)
	require.NoError(t, err)

	purchaseRepo := purchases.NewRepository(client.DB())
	coordinator, err := purchases.NewCoordinator(purchases.CoordinatorParams{
		Tx:       client,
		Benefits: catalog,
		Balances: projector,
		Stock:    benefits.NewStockController(benefitRepo),
		Ledger:   ledgerSvc,
		Repo:     purchaseRepo,
		Outbox:   emitter,
		Locker:   locks.NewLocalLocker(time.Second),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	history, err := purchases.NewService(purchaseRepo)
	require.NoError(t, err)

	engine, err := milestones.NewService(milestones.NewRepository(client.DB()))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Ledger:     ledgerSvc,
		Balances:   projector,
		Rules:      ruleSvc,
		Purchaser:  coordinator,
		Purchases:  history,
		Milestones: engine,
	})
	require.NoError(t, err)
	return fixture{coins: svc, rules: ruleSvc, benefits: catalog, milestones: engine}
}

func TestGrantCoinsAddsExactlyOneTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	before, err := f.coins.GetUserBalance(ctx, userID)
	require.NoError(t, err)

	row, err := f.coins.GrantCoins(ctx, userID, 50, "Great onboarding session", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.CoinTransactionAdminGrant, row.Type)

	after, err := f.coins.GetUserBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, before.CurrentBalance+50, after.CurrentBalance)
	assert.Equal(t, int64(50), after.TotalEarned)

	txs, err := f.coins.GetUserTransactions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestGrantCoinsRejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []int64{0, -10} {
		_, err := f.coins.GrantCoins(context.Background(), uuid.New(), amount, "x", uuid.New())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "amount %d", amount)
	}
	_, err := f.coins.GrantCoins(context.Background(), uuid.New(), 10, "x", uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPurchaseThroughFacade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	rule, err := f.rules.Create(ctx, rules.CreateRuleInput{Title: "Referral", CoinAmount: 300})
	require.NoError(t, err)
	_, err = f.coins.GrantForRule(ctx, userID, rule.ID, uuid.New())
	require.NoError(t, err)

	benefit, err := f.benefits.Create(ctx, benefits.CreateBenefitInput{
		Title: "Massage", CoinCost: 120, Category: enums.BenefitCategoryWellness,
	})
	require.NoError(t, err)

	purchase, err := f.coins.PurchaseBenefit(ctx, userID, benefit.ID)
	require.NoError(t, err)

	mine, err := f.coins.GetUserPurchases(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, purchase.ID, mine[0].ID)

	bal, err := f.coins.GetUserBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(180), bal.CurrentBalance)
	assert.Equal(t, int64(120), bal.TotalSpent)

	all, err := f.coins.GetAllTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSummaryCombinesBalanceAndMilestones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, coins := range []int64{100, 250, 500, 1000} {
		_, err := f.milestones.Create(ctx, milestones.CreateEventInput{
			Title: "Tier", Description: "d", RequiredCoins: coins, Reward: "badge",
		})
		require.NoError(t, err)
	}
	_, err := f.coins.GrantCoins(ctx, userID, 300, "quarterly bonus", uuid.New())
	require.NoError(t, err)

	summary, err := f.coins.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), summary.Balance.CurrentBalance)
	assert.Len(t, summary.Unlocked, 2)
	require.NotNil(t, summary.Next)
	assert.Equal(t, int64(500), summary.Next.RequiredCoins)
	assert.InDelta(t, 60.0, summary.Progress, 0.001)

	next, err := f.coins.NextEvent(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, summary.Next.ID, next.ID)
}

func TestRuleGrantUnlocksOnlyReachedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, coins := range []int64{10, 20, 25, 100} {
		_, err := f.milestones.Create(ctx, milestones.CreateEventInput{
			Title: "Tier", Description: "d", RequiredCoins: coins, Reward: "badge",
		})
		require.NoError(t, err)
	}
	rule, err := f.rules.Create(ctx, rules.CreateRuleInput{Title: "Peer kudos", CoinAmount: 20})
	require.NoError(t, err)

	start, err := f.coins.GetUserBalance(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, start.CurrentBalance)

	_, err = f.coins.GrantForRule(ctx, userID, rule.ID, uuid.New())
	require.NoError(t, err)

	bal, err := f.coins.GetUserBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(20), bal.CurrentBalance)

	unlocked, err := f.coins.UnlockedEvents(ctx, bal.CurrentBalance)
	require.NoError(t, err)
	thresholds := make([]int64, 0, len(unlocked))
	for _, event := range unlocked {
		thresholds = append(thresholds, event.RequiredCoins)
	}
	assert.Equal(t, []int64{10, 20}, thresholds)

	next, err := f.coins.NextEvent(ctx, bal.CurrentBalance)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, int64(25), next.RequiredCoins)
}
