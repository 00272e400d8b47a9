// Package fulfillment moves benefit purchases through their delivery states
// after the purchase has committed.
package fulfillment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/outbox/payloads"
)

var transitions = map[enums.PurchaseStatus][]enums.PurchaseStatus{
	enums.PurchaseStatusPending:  {enums.PurchaseStatusApproved, enums.PurchaseStatusCancelled},
	enums.PurchaseStatusApproved: {enums.PurchaseStatusDelivered, enums.PurchaseStatusCancelled},
}

// CanTransition reports whether a purchase may move from one status to another.
func CanTransition(from, to enums.PurchaseStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionInput asks for one status change, performed by an admin.
type TransitionInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	To         enums.PurchaseStatus
	Notes      *string
}

type Service interface {
	// Transition applies one status change. Cancelling neither refunds nor restocks.
	Transition(ctx context.Context, input TransitionInput) (*models.BenefitPurchase, error)
	// Queue lists purchases waiting in status, oldest first.
	Queue(ctx context.Context, status enums.PurchaseStatus) ([]models.BenefitPurchase, error)
}

type ServiceParams struct {
	Tx     txRunner
	Repo   *purchases.Repository
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	tx     txRunner
	repo   *purchases.Repository
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	return &service{tx: params.Tx, repo: params.Repo, outbox: params.Outbox, logg: params.Logger}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.BenefitPurchase, error) {
	if input.PurchaseID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id and actor id are required")
	}
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase status").
			WithDetails(map[string]any{"status": input.To})
	}
	notes := normalizeNotes(input.Notes)

	var updated *models.BenefitPurchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, input.PurchaseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}
		from := current.Status
		if !CanTransition(from, input.To) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase status transition not allowed").
				WithDetails(map[string]any{"from": from, "to": input.To})
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.To}
		if input.To == enums.PurchaseStatusDelivered {
			updates["delivered_at"] = now
		}
		if notes != nil {
			updates["notes"] = *notes
		}
		changed, err := s.repo.CompareAndSetStatus(ctx, tx, current.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase status")
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase status changed concurrently").
				WithDetails(map[string]any{"from": from, "to": input.To})
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseStatusChanged,
			AggregateType: enums.AggregateBenefitPurchase,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(enums.UserRoleAdmin)},
			OccurredAt:    now,
			Data: payloads.PurchaseStatusChangedEvent{
				PurchaseID: current.ID,
				UserID:     current.UserID,
				BenefitID:  current.BenefitID,
				From:       from,
				To:         input.To,
				ActorID:    input.ActorID,
				Notes:      notes,
				ChangedAt:  now,
			},
		}); err != nil {
			return err
		}

		updated, err = s.repo.FindByID(ctx, tx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchase")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithPurchaseID(ctx, updated.ID.String())
		logCtx = s.logg.WithAdminID(logCtx, input.ActorID.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", string(updated.Status)), "fulfillment.transitioned")
	}
	return updated, nil
}

func (s *service) Queue(ctx context.Context, status enums.PurchaseStatus) ([]models.BenefitPurchase, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase status")
	}
	rows, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
