// Command outbox-publisher relays committed outbox rows to Pub/Sub.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hrthis/hrthis-backend/pkg/bootstrap"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/outbox/idempotency"
	"github.com/hrthis/hrthis-backend/pkg/outbox/registry"
	"github.com/hrthis/hrthis-backend/pkg/pubsub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "outbox-publisher")
	if err != nil {
		bootstrap.Fatal(nil, "outbox-publisher failed to start", err)
	}
	if err := run(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Close()
		bootstrap.Fatal(rt.Logger, "outbox publisher stopped unexpectedly", err)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	rt.OnClose(client.Close)

	routes, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	tracker, err := idempotency.NewTracker(rt.Redis, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	conn := rt.DB.DB()
	svc, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            rt.DB,
		Broker:        newPubSubBroker(client),
		Repository:    outbox.NewRepository(conn),
		Registry:      routes,
		DLQRepository: outbox.NewDLQRepository(conn),
		Deduper:       tracker,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	ctx = logg.WithField(rt.Context(ctx), "topics", routes.Topics())
	logg.Info(ctx, "starting outbox publisher")
	defer logg.Info(ctx, "outbox publisher stopped")
	return svc.Run(ctx)
}
