// Package coins exposes the coin economy operations used by the HTTP layer.
package coins

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hrthis/hrthis-backend/internal/balance"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/internal/rules"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/pagination"
)

type balanceReader interface {
	ComputeBalance(ctx context.Context, userID uuid.UUID) (balance.UserBalance, error)
}

type purchaser interface {
	Purchase(ctx context.Context, userID, benefitID uuid.UUID) (*models.BenefitPurchase, error)
}

// WalletSummary bundles what an employee sees on the coins page.
type WalletSummary struct {
	Balance  balance.UserBalance   `json:"balance"`
	Unlocked []milestones.EventDTO `json:"unlockedEvents"`
	Next     *milestones.EventDTO  `json:"nextEvent,omitempty"`
	Progress float64               `json:"progress"`
}

type Service interface {
	GrantCoins(ctx context.Context, userID uuid.UUID, amount int64, reason string, adminID uuid.UUID) (*models.CoinTransaction, error)
	GrantForRule(ctx context.Context, userID, ruleID, adminID uuid.UUID) (*models.CoinTransaction, error)
	PurchaseBenefit(ctx context.Context, userID, benefitID uuid.UUID) (*models.BenefitPurchase, error)
	GetUserBalance(ctx context.Context, userID uuid.UUID) (balance.UserBalance, error)
	GetUserTransactions(ctx context.Context, userID uuid.UUID) ([]models.CoinTransaction, error)
	GetAllTransactions(ctx context.Context) ([]models.CoinTransaction, error)
	PageAllTransactions(ctx context.Context, cursor string, limit int) (pagination.Page[models.CoinTransaction], error)
	GetUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.BenefitPurchase, error)
	GetAllPurchases(ctx context.Context) ([]models.BenefitPurchase, error)
	UnlockedEvents(ctx context.Context, current int64) ([]models.CoinEvent, error)
	NextEvent(ctx context.Context, current int64) (*models.CoinEvent, error)
	Summary(ctx context.Context, userID uuid.UUID) (WalletSummary, error)
}

type ServiceParams struct {
	Ledger     ledger.Service
	Balances   balanceReader
	Rules      rules.Service
	Purchaser  purchaser
	Purchases  purchases.Service
	Milestones milestones.Service
}

type service struct {
	ledger     ledger.Service
	balances   balanceReader
	rules      rules.Service
	purchaser  purchaser
	purchases  purchases.Service
	milestones milestones.Service
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger is required")
	case params.Balances == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "balance projector is required")
	case params.Rules == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule catalog is required")
	case params.Purchaser == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase coordinator is required")
	case params.Purchases == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase history is required")
	case params.Milestones == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone engine is required")
	}
	return &service{
		ledger:     params.Ledger,
		balances:   params.Balances,
		rules:      params.Rules,
		purchaser:  params.Purchaser,
		purchases:  params.Purchases,
		milestones: params.Milestones,
	}, nil
}

func (s *service) GrantCoins(ctx context.Context, userID uuid.UUID, amount int64, reason string, adminID uuid.UUID) (*models.CoinTransaction, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	return s.ledger.Append(ctx, ledger.Entry{
		UserID:  userID,
		Amount:  amount,
		Reason:  strings.TrimSpace(reason),
		Type:    enums.CoinTransactionAdminGrant,
		AdminID: &adminID,
	})
}

func (s *service) GrantForRule(ctx context.Context, userID, ruleID, adminID uuid.UUID) (*models.CoinTransaction, error) {
	return s.rules.GrantForRule(ctx, userID, ruleID, adminID)
}

func (s *service) PurchaseBenefit(ctx context.Context, userID, benefitID uuid.UUID) (*models.BenefitPurchase, error) {
	return s.purchaser.Purchase(ctx, userID, benefitID)
}

func (s *service) GetUserBalance(ctx context.Context, userID uuid.UUID) (balance.UserBalance, error) {
	return s.balances.ComputeBalance(ctx, userID)
}

func (s *service) GetUserTransactions(ctx context.Context, userID uuid.UUID) ([]models.CoinTransaction, error) {
	return s.ledger.Query(ctx, userID)
}

func (s *service) GetAllTransactions(ctx context.Context) ([]models.CoinTransaction, error) {
	return s.ledger.QueryAll(ctx)
}

func (s *service) PageAllTransactions(ctx context.Context, cursor string, limit int) (pagination.Page[models.CoinTransaction], error) {
	return s.ledger.Page(ctx, cursor, limit)
}

func (s *service) GetUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.BenefitPurchase, error) {
	return s.purchases.ListByUser(ctx, userID)
}

func (s *service) GetAllPurchases(ctx context.Context) ([]models.BenefitPurchase, error) {
	return s.purchases.ListAll(ctx)
}

func (s *service) UnlockedEvents(ctx context.Context, current int64) ([]models.CoinEvent, error) {
	return s.milestones.UnlockedFor(ctx, current)
}

func (s *service) NextEvent(ctx context.Context, current int64) (*models.CoinEvent, error) {
	return s.milestones.NextFor(ctx, current)
}

// Summary reads the balance and the active milestones concurrently.
func (s *service) Summary(ctx context.Context, userID uuid.UUID) (WalletSummary, error) {
	var (
		current balance.UserBalance
		active  []models.CoinEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.balances.ComputeBalance(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.milestones.ListActive(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return WalletSummary{}, err
	}

	unlocked, next := milestones.Partition(active, current.CurrentBalance)
	summary := WalletSummary{
		Balance:  current,
		Unlocked: milestones.FromModels(unlocked),
		Progress: milestones.Progress(current.CurrentBalance, next),
	}
	if next != nil {
		dto := milestones.FromModel(*next)
		summary.Next = &dto
	}
	return summary, nil
}
