package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/balance"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/outbox/payloads"
)

// State names a step of the purchase workflow.
type State string

const (
	StateValidating           State = "VALIDATING"
	StateReservingStock       State = "RESERVING_STOCK"
	StateDebitingAndRecording State = "DEBITING_AND_RECORDING"
	StateCommitted            State = "COMMITTED"
	StateRolledBack           State = "ROLLED_BACK"
)

const (
	defaultPurchaseTimeout = 5 * time.Second
	defaultReleaseTimeout  = 5 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type benefitResolver interface {
	GetActive(ctx context.Context, id uuid.UUID) (*models.ShopBenefit, error)
}

type balanceReader interface {
	ComputeBalance(ctx context.Context, userID uuid.UUID) (balance.UserBalance, error)
}

type stockController interface {
	Reserve(ctx context.Context, tx *gorm.DB, benefitID uuid.UUID) (benefits.Reservation, error)
}

type CoordinatorParams struct {
	Tx              txRunner
	Benefits        benefitResolver
	Balances        balanceReader
	Stock           stockController
	Ledger          ledger.Service
	Repo            *Repository
	Outbox          outbox.Emitter
	Locker          locks.Locker
	Logger          *logger.Logger
	Metrics         *metrics.PurchaseMetrics
	PurchaseTimeout time.Duration
	ReleaseTimeout  time.Duration
}

// Coordinator runs the purchase workflow: validate the balance, then reserve
// stock, debit the ledger and record the purchase in one transaction. A
// failure after the reservation rolls the decrement back with everything else.
type Coordinator struct {
	tx              txRunner
	benefits        benefitResolver
	balances        balanceReader
	stock           stockController
	ledger          ledger.Service
	repo            *Repository
	outbox          outbox.Emitter
	locker          locks.Locker
	logg            *logger.Logger
	metrics         *metrics.PurchaseMetrics
	purchaseTimeout time.Duration
	releaseTimeout  time.Duration
}

func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	switch {
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	case params.Benefits == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "benefit catalog is required")
	case params.Balances == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "balance projector is required")
	case params.Stock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock controller is required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger is required")
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase repo is required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	case params.Locker == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "locker is required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.PurchaseTimeout <= 0 {
		params.PurchaseTimeout = defaultPurchaseTimeout
	}
	if params.ReleaseTimeout <= 0 {
		params.ReleaseTimeout = defaultReleaseTimeout
	}
	return &Coordinator{
		tx:              params.Tx,
		benefits:        params.Benefits,
		balances:        params.Balances,
		stock:           params.Stock,
		ledger:          params.Ledger,
		repo:            params.Repo,
		outbox:          params.Outbox,
		locker:          params.Locker,
		logg:            params.Logger,
		metrics:         params.Metrics,
		purchaseTimeout: params.PurchaseTimeout,
		releaseTimeout:  params.ReleaseTimeout,
	}, nil
}

// Purchase buys one unit of benefitID for userID. It fails with
// INSUFFICIENT_FUNDS, OUT_OF_STOCK, NOT_FOUND or CONCURRENCY_CONFLICT; a
// failure leaves no ledger entry and no held stock behind.
func (c *Coordinator) Purchase(ctx context.Context, userID, benefitID uuid.UUID) (*models.BenefitPurchase, error) {
	started := time.Now()
	purchase, outcome, err := c.purchase(ctx, userID, benefitID)
	c.metrics.Observe(outcome, time.Since(started))
	return purchase, err
}

func (c *Coordinator) purchase(ctx context.Context, userID, benefitID uuid.UUID) (*models.BenefitPurchase, string, error) {
	if userID == uuid.Nil || benefitID == uuid.Nil {
		return nil, metrics.OutcomeInvalid, pkgerrors.New(pkgerrors.CodeValidation, "user id and benefit id are required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.purchaseTimeout)
	defer cancel()
	ctx = c.logg.WithUserID(ctx, userID.String())
	ctx = c.logg.WithBenefitID(ctx, benefitID.String())

	unlock, err := c.locker.Acquire(ctx, userID.String())
	if err != nil {
		return nil, outcomeFor(err), err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			c.logg.Error(ctx, "purchase.unlock_failed", err)
		}
	}()

	c.enter(ctx, StateValidating)
	benefit, err := c.benefits.GetActive(ctx, benefitID)
	if err != nil {
		return nil, outcomeFor(err), c.interrupted(ctx, err)
	}
	current, err := c.balances.ComputeBalance(ctx, userID)
	if err != nil {
		return nil, outcomeFor(err), c.interrupted(ctx, err)
	}
	if current.CurrentBalance < benefit.CoinCost {
		return nil, metrics.OutcomeInsufficientFunds, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient coin balance").
			WithDetails(map[string]any{"balance": current.CurrentBalance, "coinCost": benefit.CoinCost})
	}

	purchase, reservation, err := c.reserveAndDebit(ctx, userID, benefit)
	if err != nil {
		err = c.interrupted(ctx, err)
		if reservation.BenefitID == uuid.Nil {
			return nil, outcomeFor(err), err
		}
		c.rollback(ctx, userID, reservation, err)
		return nil, metrics.OutcomeRolledBack, err
	}

	c.enter(c.logg.WithPurchaseID(ctx, purchase.ID.String()), StateCommitted)
	return purchase, metrics.OutcomeCommitted, nil
}

// reserveAndDebit takes the stock unit, appends the debit and records the
// purchase in one transaction. The returned reservation is non-zero once the
// decrement ran, even if the transaction later rolled back.
func (c *Coordinator) reserveAndDebit(ctx context.Context, userID uuid.UUID, benefit *models.ShopBenefit) (*models.BenefitPurchase, benefits.Reservation, error) {
	var (
		purchase    *models.BenefitPurchase
		reservation benefits.Reservation
	)
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		c.enter(ctx, StateReservingStock)
		held, err := c.stock.Reserve(ctx, tx, benefit.ID)
		if err != nil {
			return err
		}
		reservation = held

		c.enter(ctx, StateDebitingAndRecording)
		benefitID := benefit.ID
		entry, err := c.ledger.AppendTx(ctx, tx, ledger.Entry{
			UserID:    userID,
			Amount:    -benefit.CoinCost,
			Reason:    fmt.Sprintf("%s purchased", benefit.Title),
			Type:      enums.CoinTransactionBenefitPurchase,
			BenefitID: &benefitID,
		})
		if err != nil {
			return err
		}

		purchase = &models.BenefitPurchase{
			UserID:        userID,
			BenefitID:     benefit.ID,
			TransactionID: entry.ID,
			CoinCost:      benefit.CoinCost,
			Status:        enums.PurchaseStatusPending,
			PurchasedAt:   entry.CreatedAt,
		}
		if err := c.repo.Create(ctx, tx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
		}

		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBenefitPurchased,
			AggregateType: enums.AggregateBenefitPurchase,
			AggregateID:   purchase.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleEmployee)},
			OccurredAt:    purchase.PurchasedAt,
			Data: payloads.BenefitPurchasedEvent{
				PurchaseID:    purchase.ID,
				TransactionID: entry.ID,
				UserID:        userID,
				BenefitID:     benefit.ID,
				BenefitTitle:  benefit.Title,
				CoinCost:      benefit.CoinCost,
				PurchasedAt:   purchase.PurchasedAt,
			},
		})
	})
	if err != nil {
		return nil, reservation, err
	}
	return purchase, reservation, nil
}

// rollback reports a reservation undone by the failed purchase transaction.
// It runs on a context detached from the caller so a cancelled request still
// leaves the event behind.
func (c *Coordinator) rollback(ctx context.Context, userID uuid.UUID, reservation benefits.Reservation, cause error) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.releaseTimeout)
	defer cancel()

	relCtx = c.logg.WithField(relCtx, "cause", cause.Error())
	c.logg.Warn(relCtx, "purchase.state."+string(StateRolledBack))

	if !reservation.Limited {
		return
	}
	err := c.tx.WithTx(relCtx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		return c.outbox.Emit(relCtx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReservationReleased,
			AggregateType: enums.AggregateShopBenefit,
			AggregateID:   reservation.BenefitID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleEmployee)},
			OccurredAt:    now,
			Data: payloads.StockReservationReleasedEvent{
				BenefitID:  reservation.BenefitID,
				UserID:     userID,
				Cause:      causeCode(cause),
				ReleasedAt: now,
			},
		})
	})
	if err != nil {
		c.logg.Error(relCtx, "purchase.release_event_failed", err)
	}
}

func (c *Coordinator) enter(ctx context.Context, state State) {
	c.logg.Debug(ctx, "purchase.state."+string(state))
}

// interrupted maps an expired or cancelled purchase context to a dependency
// failure; other errors pass through.
func (c *Coordinator) interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purchase timed out")
	}
	if errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purchase cancelled")
	}
	return err
}

func causeCode(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
		return metrics.OutcomeOutOfStock
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.OutcomeNotFound
	case pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict):
		return metrics.OutcomeConcurrencyConflict
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeRolledBack
	}
}
