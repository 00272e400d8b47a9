package catalog

import (
	"net/http"
	"strings"

	"github.com/hrthis/hrthis-backend/api/responses"
	"github.com/hrthis/hrthis-backend/api/validators"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
)

// ListBenefits returns the active shop, optionally narrowed by ?category=.
func ListBenefits(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			rows []models.ShopBenefit
			err  error
		)
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, parseErr := enums.ParseBenefitCategory(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid category").WithDetails(map[string]any{"field": "category"}))
				return
			}
			rows, err = svc.ListByCategory(r.Context(), category)
		} else {
			rows, err = svc.ListActive(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, benefits.FromModels(rows))
	}
}

func GetBenefit(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "benefitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		benefit, err := svc.GetActive(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, benefits.FromModel(*benefit))
	}
}

func AdminListBenefits(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, benefits.FromModels(rows))
	}
}

func AdminCreateBenefit(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input benefits.CreateBenefitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, benefits.FromModel(*created))
	}
}

// AdminUpdateBenefit applies a partial update; "stockLimit": null makes the
// benefit unlimited.
func AdminUpdateBenefit(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "benefitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBenefitID(ctx, id.String())
		}
		var input benefits.UpdateBenefitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		updated, err := svc.Update(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, benefits.FromModel(*updated))
	}
}

func AdminDeleteBenefit(svc benefits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "benefitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
