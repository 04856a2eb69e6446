package wallet

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/api/middleware"
	"github.com/meshbazaar/marketplace-backend/api/responses"
	"github.com/meshbazaar/marketplace-backend/api/validators"
	internalwallet "github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/internal/withdrawals"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/logger"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// Bank detail fields arrive flat alongside the amount, not nested.
type withdrawalRequest struct {
	AmountCents int `json:"amount_cents" validate:"required,gte=1"`
	types.BankDetails
}

type resolveRequest struct {
	Status        string  `json:"status" validate:"required,oneof=approved rejected completed"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

// Overview returns the seller's balances, ledger and withdrawal history.
func Overview(svc internalwallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.Overview(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// RequestWithdrawal places a payout request against the available balance.
func RequestWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req withdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}
		request, err := svc.Request(ctx, withdrawals.RequestInput{
			SellerID:    sellerID,
			AmountCents: req.AmountCents,
			BankDetails: req.BankDetails,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ResolveWithdrawal applies an admin decision to a withdrawal request.
func ResolveWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "withdrawalId"))
		requestID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		var req resolveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseWithdrawalStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal status"))
			return
		}

		request, err := svc.Resolve(r.Context(), withdrawals.ResolveInput{
			RequestID:     requestID,
			Status:        status,
			FailureReason: req.FailureReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func sellerFromRequest(r *http.Request) (uuid.UUID, error) {
	sellerID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return sellerID, nil
}
