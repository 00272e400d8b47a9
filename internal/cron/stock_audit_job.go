package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/logger"
)

type StockAuditJobParams struct {
	Logger    *logger.Logger
	Benefits  limitedBenefitLister
	Purchases unmatchedPurchaseLister
}

type limitedBenefitLister interface {
	ListLimited(ctx context.Context) ([]models.ShopBenefit, error)
}

type unmatchedPurchaseLister interface {
	ListUnmatched(ctx context.Context) ([]models.BenefitPurchase, error)
}

// NewStockAuditJob reports limited benefits whose stock left [0, limit] and
// purchases without a matching debit. It only reports; nothing is repaired.
func NewStockAuditJob(params StockAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Benefits == nil {
		return nil, fmt.Errorf("benefit repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	return &stockAuditJob{logg: params.Logger, benefits: params.Benefits, purchases: params.Purchases}, nil
}

type stockAuditJob struct {
	logg      *logger.Logger
	benefits  limitedBenefitLister
	purchases unmatchedPurchaseLister
}

func (j *stockAuditJob) Name() string { return "stock-audit" }

func (j *stockAuditJob) Run(ctx context.Context) error {
	var findings error

	limited, err := j.benefits.ListLimited(ctx)
	if err != nil {
		return fmt.Errorf("list limited benefits: %w", err)
	}
	for _, benefit := range limited {
		if err := checkStock(benefit); err != nil {
			findings = multierr.Append(findings, err)
		}
	}

	unmatched, err := j.purchases.ListUnmatched(ctx)
	if err != nil {
		return multierr.Append(findings, fmt.Errorf("list unmatched purchases: %w", err))
	}
	for _, purchase := range unmatched {
		findings = multierr.Append(findings, fmt.Errorf(
			"purchase %s has no matching debit for transaction %s", purchase.ID, purchase.TransactionID))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"benefits_checked": len(limited),
		"findings":         len(multierr.Errors(findings)),
	})
	if findings != nil {
		j.logg.Warn(logCtx, "stock audit found inconsistencies")
		return findings
	}
	j.logg.Info(logCtx, "stock audit clean")
	return nil
}

func checkStock(benefit models.ShopBenefit) error {
	if benefit.StockLimit == nil {
		return nil
	}
	if benefit.CurrentStock == nil {
		return fmt.Errorf("benefit %s has a stock limit but no current stock", benefit.ID)
	}
	if *benefit.CurrentStock < 0 || *benefit.CurrentStock > *benefit.StockLimit {
		return fmt.Errorf("benefit %s stock %d outside [0, %d]", benefit.ID, *benefit.CurrentStock, *benefit.StockLimit)
	}
	return nil
}
