package payments

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/api/middleware"
	"github.com/meshbazaar/marketplace-backend/api/responses"
	"github.com/meshbazaar/marketplace-backend/api/validators"
	internalpayments "github.com/meshbazaar/marketplace-backend/internal/payments"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/logger"
)

type createOrderRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// CreateOrder opens a gateway payment intent for an unpaid online order.
func CreateOrder(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID.String())
		}
		record, err := svc.CreateIntent(ctx, req.OrderID, buyerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// Verify checks the signed completion payload and marks the order paid.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req internalpayments.VerifyInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID.String())
		}
		record, err := svc.Verify(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
