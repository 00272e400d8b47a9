package cron

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/metrics"
)

const cycleLockKey = "cycle"

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   locks.Locker
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval. Replicas race for a
// shared cycle lock and the losers sit the tick out.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	locker   locks.Locker
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("cron: logger required")
	case p.Locker == nil:
		return nil, errors.New("cron: locker required")
	}
	if p.Registry == nil {
		p.Registry = NewRegistry()
	}
	if p.Interval <= 0 {
		p.Interval = time.Hour
	}
	return &Service{
		logg:     p.Logger,
		jobs:     p.Registry,
		locker:   p.Locker,
		metrics:  p.Metrics,
		interval: p.Interval,
	}, nil
}

// cycle summarises one tick.
type cycle struct {
	skipped bool
	failed  []string
}

// Run ticks immediately and then every interval. It returns ctx.Err() once
// ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		res, err := s.tick(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "cron cycle aborted", err)
		case res.skipped:
			s.logg.Debug(ctx, "cycle lock held elsewhere, skipping")
		case len(res.failed) > 0:
			s.logg.Warn(s.logg.WithField(ctx, "failed_jobs", res.failed), "cron cycle finished with failures")
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) (cycle, error) {
	release, err := s.locker.Acquire(ctx, cycleLockKey)
	if pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict) {
		return cycle{skipped: true}, nil
	}
	if err != nil {
		return cycle{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cron cycle lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron cycle lock", err)
		}
	}()

	var res cycle
	for _, job := range s.jobs.Jobs() {
		if ctx.Err() != nil {
			break
		}
		if err := s.execute(ctx, job); err != nil {
			res.failed = append(res.failed, job.Name())
		}
	}
	return res, nil
}

func (s *Service) execute(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)
	s.metrics.Record(job.Name(), elapsed, err)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Info(ctx, "cron job done")
	return nil
}
