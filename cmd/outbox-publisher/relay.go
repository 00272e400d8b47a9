package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	"github.com/hrthis/hrthis-backend/pkg/outbox/registry"
)

var errNoTopic = errors.New("no publisher for topic")

// processBatch claims up to batchSize rows and relays each one. A failing
// row never stops the rest of the batch; only storage errors do. It returns
// how many rows were claimed.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.ClaimBatch(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(rows)

		var sent []uuid.UUID
		for _, row := range rows {
			ok, err := s.relay(ctx, tx, row)
			if err != nil {
				return err
			}
			if ok {
				sent = append(sent, row.ID)
			}
		}
		if len(sent) == 0 {
			return nil
		}
		if err := s.repo.MarkPublished(tx, sent...); err != nil {
			return fmt.Errorf("mark %d rows published: %w", len(sent), err)
		}
		return nil
	})
	return claimed, err
}

// relay reports whether row can be marked published.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (bool, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return false, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	first, err := s.claim(ctx, row.ID)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", row.ID, err)
	}
	if !first {
		s.metrics.Duplicate(string(row.EventType))
		s.logg.Warn(ctx, "outbox event already published, marking row")
		return true, nil
	}

	err = s.send(ctx, row, resolved)
	if err == nil {
		s.metrics.Published(string(row.EventType))
		s.logg.Info(ctx, "outbox event published")
		return true, nil
	}
	s.release(ctx, row.ID)

	var permanent registry.NonRetryableError
	switch {
	case errors.Is(err, errNoTopic):
		return false, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNoTopic, err)
	case errors.As(err, &permanent):
		return false, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case row.AttemptCount+1 >= s.maxAttempts:
		return false, s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	s.metrics.Failed(string(row.EventType))
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox publish failed")
	if err := s.repo.RecordFailure(tx, row.ID, err); err != nil {
		return false, fmt.Errorf("record failure %s: %w", row.ID, err)
	}
	return false, nil
}

// deadLetter copies row into the DLQ and parks it so it is never claimed
// again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": msg}), "outbox event dead-lettered")

	if err := s.dlq.Insert(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := s.repo.Park(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	s.metrics.DeadLettered(string(row.EventType))
	return nil
}

func (s *Service) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err := s.broker.Publish(ctx, topic, message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	return err
}

func (s *Service) claim(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.dedupe == nil {
		return true, nil
	}
	return s.dedupe.Claim(ctx, consumerName, id)
}

func (s *Service) release(ctx context.Context, id uuid.UUID) {
	if s.dedupe == nil {
		return
	}
	if err := s.dedupe.Release(ctx, consumerName, id); err != nil {
		s.logg.Error(ctx, "failed to clear publish marker", err)
	}
}
