package purchases

import (
	"net/http"
	"strings"

	"github.com/hrthis/hrthis-backend/api/controllers/identity"
	"github.com/hrthis/hrthis-backend/api/responses"
	"github.com/hrthis/hrthis-backend/api/validators"
	"github.com/hrthis/hrthis-backend/internal/fulfillment"
	internalpurchases "github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
)

const maxNotesLength = 1000

// AdminList returns every purchase newest first, or the fulfillment queue for
// one status (oldest first) when ?status= is set.
func AdminList(svc internalpurchases.Service, queue fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("status"))
		if raw == "" {
			rows, err := svc.ListAll(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, internalpurchases.FromModels(rows))
			return
		}

		status, err := enums.ParsePurchaseStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"}))
			return
		}
		rows, err := queue.Queue(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpurchases.FromModels(rows))
	}
}

type transitionRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// AdminTransition moves a purchase through the fulfillment workflow.
func AdminTransition(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := identity.ResolveAdminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchaseID, err := validators.ParseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParsePurchaseStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"}))
			return
		}
		if payload.Notes != nil {
			notes := validators.SanitizeString(*payload.Notes, maxNotesLength)
			payload.Notes = &notes
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPurchaseID(ctx, purchaseID.String())
		}
		updated, err := svc.Transition(ctx, fulfillment.TransitionInput{
			PurchaseID: purchaseID,
			ActorID:    adminID,
			To:         to,
			Notes:      payload.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpurchases.FromModel(*updated))
	}
}
