package rules

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// Service is the earning rule catalog.
type Service interface {
	ListActive(ctx context.Context) ([]models.CoinRule, error)
	ListAll(ctx context.Context) ([]models.CoinRule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CoinRule, error)
	Create(ctx context.Context, input CreateRuleInput) (*models.CoinRule, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (*models.CoinRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// GrantForRule credits the rule's amount to userID, snapshotting its title as the reason.
	GrantForRule(ctx context.Context, userID, ruleID, adminID uuid.UUID) (*models.CoinTransaction, error)
}

type ServiceParams struct {
	Repo   *Repository
	Ledger ledger.Service
}

type service struct {
	repo   *Repository
	ledger ledger.Service
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule repo is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger is required")
	}
	return &service{repo: params.Repo, ledger: params.Ledger}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.CoinRule, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.CoinRule, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CoinRule, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return rule, nil
}

func (s *service) Create(ctx context.Context, input CreateRuleInput) (*models.CoinRule, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.CoinAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin amount must be positive")
	}
	rule := &models.CoinRule{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		CoinAmount:  input.CoinAmount,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule")
	}
	return rule, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (*models.CoinRule, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.CoinAmount != nil {
		if *input.CoinAmount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin amount must be positive")
		}
		updates["coin_amount"] = *input.CoinAmount
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

// Delete is logical: the rule stays resolvable by id for history views.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, id, UpdateRuleInput{IsActive: &inactive})
	return err
}

func (s *service) GrantForRule(ctx context.Context, userID, ruleID, adminID uuid.UUID) (*models.CoinTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	rule, err := s.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
	}
	return s.ledger.Append(ctx, ledger.Entry{
		UserID:  userID,
		Amount:  rule.CoinAmount,
		Reason:  rule.Title,
		Type:    enums.CoinTransactionRuleEarned,
		AdminID: &adminID,
		RuleID:  &rule.ID,
	})
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "rule not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rule")
}
