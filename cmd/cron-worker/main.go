// Command cron-worker runs the periodic maintenance jobs. Replicas share a
// Redis lock so only one of them works a given tick.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/cron"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/pkg/bootstrap"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "cron-worker")
	if err != nil {
		bootstrap.Fatal(nil, "cron-worker failed to start", err)
	}
	if err := run(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Close()
		bootstrap.Fatal(rt.Logger, "cron worker stopped unexpectedly", err)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg, conn := rt.Config, rt.Logger, rt.DB.DB()

	// No retries: a replica that loses the race skips the tick.
	cycleLock, err := locks.NewRedisLocker(rt.Redis, locks.RedisOptions{
		Scope: "cron:" + cfg.App.Env,
		TTL:   cfg.Cron.LockTTL,
	})
	if err != nil {
		return err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:    logg,
		Outbox:    outbox.NewRepository(conn),
		DLQ:       outbox.NewDLQRepository(conn),
		Retention: cfg.Outbox.Retention,
	})
	if err != nil {
		return err
	}
	audit, err := cron.NewStockAuditJob(cron.StockAuditJobParams{
		Logger:    logg,
		Benefits:  benefits.NewRepository(conn),
		Purchases: purchases.NewRepository(conn),
	})
	if err != nil {
		return err
	}

	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(audit, retention),
		Locker:   cycleLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = rt.Context(ctx)
	logg.Info(ctx, "starting cron worker")
	defer logg.Info(ctx, "cron worker stopped")
	return svc.Run(ctx)
}
