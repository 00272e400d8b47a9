package purchases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrthis/hrthis-backend/pkg/db/models"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// Service reads purchase history.
type Service interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BenefitPurchase, error)
	ListAll(ctx context.Context) ([]models.BenefitPurchase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BenefitPurchase, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BenefitPurchase, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user purchases")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.BenefitPurchase, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BenefitPurchase, error) {
	purchase, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}
