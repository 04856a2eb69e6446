package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/pkg/db"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/gateway"
	"github.com/meshbazaar/marketplace-backend/pkg/metrics"
)

// VerifyInput is the signed completion payload the client relays from the
// gateway checkout.
type VerifyInput struct {
	OrderID          uuid.UUID `json:"order_id" validate:"required"`
	GatewayOrderID   string    `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required"`
	Signature        string    `json:"gateway_signature" validate:"required"`
}

// Service handles online payment intents and their verification.
type Service interface {
	CreateIntent(ctx context.Context, orderID, buyerID uuid.UUID) (*models.PaymentRecord, error)
	Verify(ctx context.Context, input VerifyInput) (*models.PaymentRecord, error)
}

// gatewayClient is the slice of the processor client this service needs.
type gatewayClient interface {
	CreateOrder(ctx context.Context, amountCents int, receipt string) (*gateway.Order, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	Currency() string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	gateway gatewayClient
	tx      txRunner
	metrics *metrics.CoreMetrics
}

// NewService wires the payment service.
func NewService(repo Repository, gw gatewayClient, tx txRunner, coreMetrics *metrics.CoreMetrics) Service {
	return &service{
		repo:    repo,
		gateway: gw,
		tx:      tx,
		metrics: coreMetrics,
	}
}

// CreateIntent registers a gateway order for an unpaid online order and
// stores the payment record. Calling it again for the same order returns the
// existing record instead of opening a second gateway order.
func (s *service) CreateIntent(ctx context.Context, orderID, buyerID uuid.UUID) (*models.PaymentRecord, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cash orders have no gateway payment")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	if record, err := s.repo.FindRecordByOrderID(ctx, orderID); err == nil {
		return record, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment record")
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, order.TotalCents, order.ID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating gateway order")
	}

	record := &models.PaymentRecord{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		AmountCents:    order.TotalCents,
		Currency:       s.gateway.Currency(),
	}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		// A concurrent intent won the insert race; serve its record.
		if db.IsUniqueViolation(err, "ux_payment_records_order") {
			return s.repo.FindRecordByOrderID(ctx, orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing payment record")
	}
	return record, nil
}

// Verify checks the gateway's completion signature and, on match, marks the
// order paid. Re-delivering the same completion is a no-op success; a bad
// signature is rejected without touching the order.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.PaymentRecord, error) {
	var verified *models.PaymentRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindRecordByOrderIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no payment intent for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking payment record")
		}

		if record.Verified {
			verified = record
			return nil
		}

		if record.GatewayOrderID != input.GatewayOrderID ||
			!s.gateway.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
			s.metrics.IncPaymentVerification("mismatch")
			return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature verification failed")
		}

		now := time.Now().UTC()
		if err := repo.MarkRecordVerified(ctx, record.ID, input.GatewayPaymentID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payment verified")
		}
		if err := repo.SetOrderPaymentStatus(ctx, record.OrderID, enums.PaymentStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order paid")
		}

		record.GatewayPaymentID = &input.GatewayPaymentID
		record.Verified = true
		record.VerifiedAt = &now
		verified = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentVerification("ok")
	return verified, nil
}
