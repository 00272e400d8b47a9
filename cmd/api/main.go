package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrthis/hrthis-backend/api/routes"
	"github.com/hrthis/hrthis-backend/internal/balance"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/coins"
	"github.com/hrthis/hrthis-backend/internal/fulfillment"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/internal/rules"
	"github.com/hrthis/hrthis-backend/pkg/bootstrap"
	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "api")
	if err != nil {
		bootstrap.Fatal(nil, "api failed to start", err)
	}
	if err := serve(ctx, rt); err != nil {
		rt.Close()
		bootstrap.Fatal(rt.Logger, "api server stopped unexpectedly", err)
	}
	rt.Close()
}

// serve blocks until ctx ends or the listener fails, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	userLocks, err := newUserLocker(cfg.Coins, rt.Redis)
	if err != nil {
		return err
	}
	deps, err := wireServices(cfg, logg, rt.DB, userLocks, metrics.NewPurchaseMetrics(reg))
	if err != nil {
		return err
	}
	deps.DB = rt.DB
	deps.Redis = rt.Redis
	deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithFields(rt.Context(ctx), map[string]any{
		"addr":        server.Addr,
		"lock_driver": cfg.Coins.LockBackend,
	})

	failed := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		failed <- server.ListenAndServe()
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drain); err != nil {
		return err
	}
	if err := <-failed; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newUserLocker(cfg config.CoinsConfig, store *redis.Client) (locks.Locker, error) {
	if !cfg.UsesRedisLock() {
		return locks.NewLocalLocker(cfg.PurchaseTimeout), nil
	}
	locker, err := locks.NewRedisLocker(store, locks.RedisOptions{
		Scope:      "purchase",
		TTL:        cfg.LockTTL,
		Retries:    cfg.LockRetries,
		RetryDelay: cfg.LockRetryDelay,
	})
	if err != nil {
		return nil, err
	}
	return locker, nil
}

func wireServices(cfg *config.Config, logg *logger.Logger, client *db.Client, userLocks locks.Locker, purchaseMetrics *metrics.PurchaseMetrics) (routes.Dependencies, error) {
	conn := client.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo, Tx: client, Outbox: emitter})
	if err != nil {
		return routes.Dependencies{}, err
	}
	projector := balance.NewProjector(ledgerRepo)

	ruleSvc, err := rules.NewService(rules.ServiceParams{Repo: rules.NewRepository(conn), Ledger: ledgerSvc})
	if err != nil {
		return routes.Dependencies{}, err
	}

	benefitRepo := benefits.NewRepository(conn)
	catalog, err := benefits.NewService(benefitRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	purchaseRepo := purchases.NewRepository(conn)
	coordinator, err := purchases.NewCoordinator(purchases.CoordinatorParams{
		Tx:              client,
		Benefits:        catalog,
		Balances:        projector,
		Stock:           benefits.NewStockController(benefitRepo),
		Ledger:          ledgerSvc,
		Repo:            purchaseRepo,
		Outbox:          emitter,
		Locker:          userLocks,
		Logger:          logg,
		Metrics:         purchaseMetrics,
		PurchaseTimeout: cfg.Coins.PurchaseTimeout,
		ReleaseTimeout:  cfg.Coins.ReleaseTimeout,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	history, err := purchases.NewService(purchaseRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	engine, err := milestones.NewService(milestones.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	workflow, err := fulfillment.NewService(fulfillment.ServiceParams{Tx: client, Repo: purchaseRepo, Outbox: emitter, Logger: logg})
	if err != nil {
		return routes.Dependencies{}, err
	}

	facade, err := coins.NewService(coins.ServiceParams{
		Ledger:     ledgerSvc,
		Balances:   projector,
		Rules:      ruleSvc,
		Purchaser:  coordinator,
		Purchases:  history,
		Milestones: engine,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Coins:       facade,
		Rules:       ruleSvc,
		Benefits:    catalog,
		Milestones:  engine,
		Purchases:   history,
		Fulfillment: workflow,
	}, nil
}
