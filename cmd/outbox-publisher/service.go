package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
	"github.com/hrthis/hrthis-backend/pkg/outbox/registry"
)

const (
	consumerName = "outbox-publisher"

	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
	idleJitter     = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, ids ...uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Park(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error
}

type dlqRepository interface {
	Insert(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// deduper remembers which events already reached Pub/Sub so a batch that
// rolls back after a successful publish does not send the event twice.
type deduper interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Broker        broker
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Deduper       deduper
	Metrics       *metrics.OutboxMetrics
}

type Service struct {
	logg     *logger.Logger
	db       dbClient
	broker   broker
	repo     outboxRepository
	dlq      dlqRepository
	registry registryResolver
	dedupe   deduper
	metrics  *metrics.OutboxMetrics

	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	var missing []error
	for name, dep := range map[string]any{
		"config":         p.Config,
		"logger":         p.Logger,
		"database":       p.DB,
		"broker":         p.Broker,
		"repository":     p.Repository,
		"event registry": p.Registry,
		"dlq repository": p.DLQRepository,
	} {
		if isNil(dep) {
			missing = append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	oc := p.Config.Outbox
	return &Service{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		repo:        p.Repository,
		dlq:         p.DLQRepository,
		registry:    p.Registry,
		dedupe:      p.Deduper,
		metrics:     p.Metrics,
		batchSize:   positiveOr(oc.BatchSize, 50),
		maxAttempts: positiveOr(oc.MaxAttempts, 10),
		poll:        time.Duration(positiveOr(oc.PollIntervalMS, 500)) * time.Millisecond,
	}, nil
}

// Run drains the outbox until ctx ends. Full batches are followed straight
// away by the next one; empty or failed batches back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.broker.Ping(ctx); err != nil {
		s.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	backoff := s.idleBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		drained, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
		case drained > 0:
			backoff = s.idleBackoff()
			continue
		}

		wait, _ := backoff.Next()
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) idleBackoff() retry.Backoff {
	b := retry.NewExponential(s.poll)
	b = retry.WithCappedDuration(idleCeiling, b)
	return retry.WithJitter(idleJitter, b)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func isNil(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case *config.Config:
		return d == nil
	case *logger.Logger:
		return d == nil
	}
	return false
}
