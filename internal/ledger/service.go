package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/outbox/payloads"
	"github.com/hrthis/hrthis-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Entry is the input for one ledger append.
type Entry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	Reason    string
	Type      enums.CoinTransactionType
	AdminID   *uuid.UUID
	BenefitID *uuid.UUID
	RuleID    *uuid.UUID
	CreatedAt time.Time
}

// Service is the append-only transaction ledger.
type Service interface {
	// Append validates and records entry in its own transaction.
	Append(ctx context.Context, entry Entry) (*models.CoinTransaction, error)
	// AppendTx records entry inside the caller's transaction.
	AppendTx(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CoinTransaction, error)
	Query(ctx context.Context, userID uuid.UUID) ([]models.CoinTransaction, error)
	QueryAll(ctx context.Context) ([]models.CoinTransaction, error)
	Page(ctx context.Context, cursor string, limit int) (pagination.Page[models.CoinTransaction], error)
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Outbox outbox.Emitter
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	return &service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox}, nil
}

func (s *service) Append(ctx context.Context, entry Entry) (*models.CoinTransaction, error) {
	var row *models.CoinTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = s.AppendTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) AppendTx(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CoinTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := validateEntry(&entry); err != nil {
		return nil, err
	}

	row := &models.CoinTransaction{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Amount:    entry.Amount,
		Reason:    entry.Reason,
		Type:      entry.Type,
		AdminID:   entry.AdminID,
		BenefitID: entry.BenefitID,
		RuleID:    entry.RuleID,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded").
				WithDetails(map[string]any{"transactionId": row.ID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append coin transaction")
	}

	if eventType, ok := creditEventType(row.Type); ok {
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateCoinTransaction,
			AggregateID:   row.ID,
			Actor:         actorFor(row),
			OccurredAt:    row.CreatedAt,
			Data: payloads.CoinsCreditedEvent{
				TransactionID: row.ID,
				UserID:        row.UserID,
				Amount:        row.Amount,
				Reason:        row.Reason,
				Type:          row.Type,
				AdminID:       row.AdminID,
				RuleID:        row.RuleID,
				CreatedAt:     row.CreatedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit ledger event")
		}
	}
	return row, nil
}

func (s *service) Query(ctx context.Context, userID uuid.UUID) ([]models.CoinTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user transactions")
	}
	return rows, nil
}

func (s *service) QueryAll(ctx context.Context) ([]models.CoinTransaction, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return rows, nil
}

func (s *service) Page(ctx context.Context, cursor string, limit int) (pagination.Page[models.CoinTransaction], error) {
	decoded, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return pagination.Page[models.CoinTransaction]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPage(ctx, decoded, limit)
	if err != nil {
		return pagination.Page[models.CoinTransaction]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return pagination.Paginate(rows, limit, func(row models.CoinTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}), nil
}

func validateEntry(entry *Entry) error {
	if entry.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if entry.Amount == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if !entry.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").
			WithDetails(map[string]any{"type": entry.Type})
	}
	if entry.Type.IsCredit() && entry.Amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit transactions must be positive")
	}
	if !entry.Type.IsCredit() && entry.Amount > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit transactions must be negative")
	}
	if ref := missingReference(entry); ref != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, ref+" is required for "+string(entry.Type)+" transactions").
			WithDetails(map[string]any{"type": entry.Type, "field": ref})
	}
	entry.Reason = strings.TrimSpace(entry.Reason)
	if entry.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	return nil
}

// missingReference names the reference a transaction of entry's type must
// carry when it is absent. Every row points back at whoever or whatever
// caused it so audits can follow it.
func missingReference(entry *Entry) string {
	var ref *uuid.UUID
	var field string
	switch entry.Type {
	case enums.CoinTransactionAdminGrant:
		ref, field = entry.AdminID, "adminId"
	case enums.CoinTransactionRuleEarned:
		ref, field = entry.RuleID, "ruleId"
	case enums.CoinTransactionBenefitPurchase:
		ref, field = entry.BenefitID, "benefitId"
	default:
		return ""
	}
	if ref == nil || *ref == uuid.Nil {
		return field
	}
	return ""
}

func creditEventType(t enums.CoinTransactionType) (enums.OutboxEventType, bool) {
	switch t {
	case enums.CoinTransactionAdminGrant:
		return enums.EventCoinsGranted, true
	case enums.CoinTransactionRuleEarned:
		return enums.EventCoinsEarned, true
	default:
		return "", false
	}
}

func actorFor(row *models.CoinTransaction) *outbox.ActorRef {
	if row.AdminID != nil {
		return &outbox.ActorRef{UserID: *row.AdminID, Role: string(enums.UserRoleAdmin)}
	}
	return &outbox.ActorRef{UserID: row.UserID, Role: string(enums.UserRoleEmployee)}
}
