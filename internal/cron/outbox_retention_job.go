package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hrthis/hrthis-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    publishedPruner
	DLQ       deadLetterPruner
	Retention time.Duration
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows and dead letters older
// than the retention window. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		dlq:       params.DLQ,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    publishedPruner
	dlq       deadLetterPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	published, pubErr := j.outbox.DeletePublishedBefore(ctx, cutoff)
	if pubErr != nil {
		pubErr = fmt.Errorf("prune outbox: %w", pubErr)
	}
	dead, dlqErr := j.dlq.DeleteFailedBefore(ctx, cutoff)
	if dlqErr != nil {
		dlqErr = fmt.Errorf("prune dlq: %w", dlqErr)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"retention":     j.retention.String(),
		"outbox_pruned": published,
		"dlq_pruned":    dead,
	})
	if err := multierr.Combine(pubErr, dlqErr); err != nil {
		return err
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
