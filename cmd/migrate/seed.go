package main

import (
	"context"

	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/rules"
	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
)

var seedRules = []rules.CreateRuleInput{
	{Title: "Schulung abgeschlossen", Description: "Für jede erfolgreich abgeschlossene Schulung", CoinAmount: 20},
	{Title: "Keine Krankheitstage im Monat", Description: "Bonus für komplette Anwesenheit im Monat", CoinAmount: 15},
	{Title: "Überstunden (>5h/Monat)", Description: "Zusätzliche Coins für Flexibilität", CoinAmount: 10},
}

var seedBenefits = []benefits.CreateBenefitInput{
	{Title: "Massage Gutschein", Description: "60 Minuten entspannende Massage", CoinCost: 150, Category: enums.BenefitCategoryWellness, StockLimit: intPtr(10), CurrentStock: intPtr(8)},
	{Title: "Lunch Gutschein", Description: "Mittagessen im Restaurant nach Wahl (bis 25€)", CoinCost: 75, Category: enums.BenefitCategoryFood},
	{Title: "Zusätzlicher freier Tag", Description: "Ein zusätzlicher bezahlter Urlaubstag", CoinCost: 200, Category: enums.BenefitCategoryTimeOff, StockLimit: intPtr(5), CurrentStock: intPtr(3)},
	{Title: "Tech Gadget Budget", Description: "50€ Budget für Tech-Zubehör", CoinCost: 125, Category: enums.BenefitCategoryTech},
	{Title: "Fitness Studio Monat", Description: "1 Monat kostenlose Mitgliedschaft", CoinCost: 100, Category: enums.BenefitCategoryWellness, StockLimit: intPtr(20), CurrentStock: intPtr(15)},
}

var seedEvents = []milestones.CreateEventInput{
	{Title: "Bronze Status", Description: "Achieve Bronze status and unlock basic perks", RequiredCoins: 100, Reward: "Bronze badge + 5% discount on company merchandise"},
	{Title: "Silver Status", Description: "Level up to Silver status for enhanced benefits", RequiredCoins: 250, Reward: "Silver badge + 10% discount + Priority support"},
	{Title: "Gold Status", Description: "Reach Gold status and enjoy premium perks", RequiredCoins: 500, Reward: "Gold badge + 15% discount + VIP lounge access + 1 extra vacation day"},
	{Title: "Platinum Status", Description: "Achieve the highest status level with exclusive rewards", RequiredCoins: 1000, Reward: "Platinum badge + 20% discount + Executive lounge + 2 extra vacation days + Personal assistant for 1 month"},
}

type seedCatalogs struct {
	rules      rules.Service
	benefits   benefits.Service
	milestones milestones.Service
}

func newSeedCatalogs(client *db.Client, logg *logger.Logger) (seedCatalogs, error) {
	conn := client.DB()
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repo:   ledger.NewRepository(conn),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(conn), logg),
	})
	if err != nil {
		return seedCatalogs{}, err
	}
	ruleSvc, err := rules.NewService(rules.ServiceParams{Repo: rules.NewRepository(conn), Ledger: ledgerSvc})
	if err != nil {
		return seedCatalogs{}, err
	}
	benefitSvc, err := benefits.NewService(benefits.NewRepository(conn))
	if err != nil {
		return seedCatalogs{}, err
	}
	eventSvc, err := milestones.NewService(milestones.NewRepository(conn))
	if err != nil {
		return seedCatalogs{}, err
	}
	return seedCatalogs{rules: ruleSvc, benefits: benefitSvc, milestones: eventSvc}, nil
}

// seedDev loads the demo catalog. Each table is only seeded while empty, so
// reruns are no-ops.
func seedDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, catalogs seedCatalogs) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AllowDevSeed {
		return pkgerrors.New(pkgerrors.CodeValidation, "seeding requires a dev environment with "+config.EnvAllowDevSeed+"=true")
	}

	existingRules, err := catalogs.rules.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existingRules) == 0 {
		for _, input := range seedRules {
			if _, err := catalogs.rules.Create(ctx, input); err != nil {
				return err
			}
		}
		logg.Info(logg.WithField(ctx, "count", len(seedRules)), "seeded coin rules")
	}

	existingBenefits, err := catalogs.benefits.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existingBenefits) == 0 {
		for _, input := range seedBenefits {
			if _, err := catalogs.benefits.Create(ctx, input); err != nil {
				return err
			}
		}
		logg.Info(logg.WithField(ctx, "count", len(seedBenefits)), "seeded shop benefits")
	}

	existingEvents, err := catalogs.milestones.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existingEvents) == 0 {
		for _, input := range seedEvents {
			if _, err := catalogs.milestones.Create(ctx, input); err != nil {
				return err
			}
		}
		logg.Info(logg.WithField(ctx, "count", len(seedEvents)), "seeded coin events")
	}
	return nil
}

func intPtr(v int) *int { return &v }
