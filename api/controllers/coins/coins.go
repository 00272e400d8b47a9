package coins

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/api/controllers/identity"
	"github.com/hrthis/hrthis-backend/api/responses"
	"github.com/hrthis/hrthis-backend/api/validators"
	internalcoins "github.com/hrthis/hrthis-backend/internal/coins"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/pagination"
)

const maxReasonLength = 500

// Balance returns the caller's ledger-derived balance.
func Balance(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bal, err := svc.GetUserBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bal)
	}
}

// Transactions lists the caller's ledger entries, newest first.
func Transactions(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.GetUserTransactions(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.FromModels(rows))
	}
}

func Summary(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// Purchase spends the caller's coins on one unit of a benefit.
func Purchase(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		benefitID, err := validators.ParseUUIDParam(r, "benefitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBenefitID(ctx, benefitID.String())
		}

		purchase, err := svc.PurchaseBenefit(ctx, userID, benefitID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, purchases.FromModel(*purchase))
	}
}

func MyPurchases(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.GetUserPurchases(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, purchases.FromModels(rows))
	}
}

// UnlockedEvents lists the milestones the caller's balance has reached.
func UnlockedEvents(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bal, err := svc.GetUserBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.UnlockedEvents(r.Context(), bal.CurrentBalance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, milestones.FromModels(events))
	}
}

type nextEventResponse struct {
	Event    *milestones.EventDTO `json:"event"`
	Progress float64              `json:"progress"`
}

// NextEvent returns the cheapest milestone still out of reach, or a null event.
func NextEvent(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := identity.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bal, err := svc.GetUserBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := svc.NextEvent(r.Context(), bal.CurrentBalance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := nextEventResponse{Progress: milestones.Progress(bal.CurrentBalance, next)}
		if next != nil {
			dto := milestones.FromModel(*next)
			resp.Event = &dto
		}
		responses.WriteSuccess(w, resp)
	}
}

type grantRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required"`
}

// AdminGrant credits coins to an employee.
func AdminGrant(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := identity.ResolveAdminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload grantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId"))
			return
		}

		entry, err := svc.GrantCoins(r.Context(), userID, payload.Amount, validators.SanitizeString(payload.Reason, maxReasonLength), adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, ledger.FromModel(*entry))
	}
}

type ruleGrantRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	RuleID string `json:"ruleId" validate:"required,uuid"`
}

// AdminRuleGrant credits the amount defined by an earning rule.
func AdminRuleGrant(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := identity.ResolveAdminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleGrantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId"))
			return
		}
		ruleID, err := uuid.Parse(payload.RuleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ruleId"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRuleID(ctx, ruleID.String())
		}
		entry, err := svc.GrantForRule(ctx, userID, ruleID, adminID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, ledger.FromModel(*entry))
	}
}

// AdminTransactions pages through every ledger entry.
func AdminTransactions(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.PageAllTransactions(r.Context(), cursor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.PageFromModels(page))
	}
}

func AdminUserBalance(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bal, err := svc.GetUserBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bal)
	}
}

func AdminUserTransactions(svc internalcoins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.GetUserTransactions(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.FromModels(rows))
	}
}
