package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/internal/catalog"
	"github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/pkg/config"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/metrics"
)

// Service drives the order lifecycle. Every transition that moves money runs
// the status update and the wallet ledger entry in one database transaction.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	FindForActor(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Dispatch(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	ledger  wallet.Ledger
	tx      txRunner
	fees    config.FeesConfig
	metrics *metrics.CoreMetrics
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, catalogRepo catalog.Repository, ledger wallet.Ledger, tx txRunner, fees config.FeesConfig, coreMetrics *metrics.CoreMetrics) Service {
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		ledger:  ledger,
		tx:      tx,
		fees:    fees,
		metrics: coreMetrics,
	}
}

// Create places a pending order: snapshots prices and customizations from the
// catalog, reserves stock, computes fees and persists everything atomically.
// All items must belong to one seller; mixed carts are split upstream.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.Address.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)

		var (
			sellerID  uuid.UUID
			subtotal  int
			giftLines int
			items     = make([]models.OrderItem, 0, len(input.Items))
		)
		for _, line := range input.Items {
			product, err := catalogRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": line.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
			}

			if sellerID == uuid.Nil {
				sellerID = product.SellerID
			} else if sellerID != product.SellerID {
				return pkgerrors.New(pkgerrors.CodeValidation, "all items must belong to the same seller")
			}

			if err := catalogRepo.DecrementStock(ctx, product.ID, line.Qty); err != nil {
				return err
			}

			subtotal += product.PriceCents * line.Qty
			if line.GiftPackaging {
				giftLines++
			}
			items = append(items, models.OrderItem{
				ProductID:      product.ID,
				Name:           product.Name,
				Qty:            line.Qty,
				UnitPriceCents: product.PriceCents,
				GiftPackaging:  line.GiftPackaging,
				Customizations: line.Customizations,
			})
		}

		fees := ComputeFees(s.fees, subtotal, giftLines, input.PaymentMethod)

		paymentStatus := enums.PaymentStatusUnpaid
		if input.PaymentMethod == enums.PaymentMethodCOD {
			paymentStatus = enums.PaymentStatusCODPending
		}

		order := &models.Order{
			BuyerID:          input.BuyerID,
			SellerID:         sellerID,
			AddressSnapshot:  input.Address,
			PaymentMethod:    input.PaymentMethod,
			Status:           enums.OrderStatusPending,
			PaymentStatus:    paymentStatus,
			SubtotalCents:    fees.SubtotalCents,
			DeliveryFeeCents: fees.DeliveryFeeCents,
			GiftFeeCents:     fees.GiftFeeCents,
			CODFeeCents:      fees.CODFeeCents,
			TotalCents:       fees.TotalCents,
			Items:            items,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(string(created.PaymentMethod))
	return created, nil
}

// FindForActor returns the order when the actor is its buyer, its seller or
// an admin. Everyone else gets NOT_FOUND to avoid leaking order existence.
func (s *service) FindForActor(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if !actorOwns(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Confirm moves a pending, fully paid order to confirmed and accrues the
// seller share as pending wallet balance. Re-confirming a confirmed order is
// a no-op.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if err := requireSeller(order, actor); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusConfirmed {
			return nil
		}
		if order.Status != enums.OrderStatusPending {
			return transitionConflict(order.Status, enums.OrderStatusConfirmed)
		}
		if !order.PaymentStatus.Settled() {
			return pkgerrors.New(pkgerrors.CodePaymentNotReady, "order cannot be confirmed before payment").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusConfirmed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusConfirmed

		return s.ledger.AccruePending(ctx, tx, order)
	})
}

// Dispatch moves a confirmed order to dispatched. No money moves.
func (s *service) Dispatch(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if err := requireSeller(order, actor); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusDispatched {
			return nil
		}
		if order.Status != enums.OrderStatusConfirmed {
			return transitionConflict(order.Status, enums.OrderStatusDispatched)
		}

		if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusDispatched,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusDispatched
		return nil
	})
}

// MarkDelivered finishes the order on the fulfillment callback: dispatched
// becomes delivered, COD counts as collected, and the seller share settles
// from pending to available. Duplicate deliveries are no-ops.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if order.Status == enums.OrderStatusDelivered {
			return nil
		}
		if order.Status != enums.OrderStatusDispatched {
			return transitionConflict(order.Status, enums.OrderStatusDelivered)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		}
		if order.PaymentMethod == enums.PaymentMethodCOD {
			updates["payment_status"] = enums.PaymentStatusCODCollected
			order.PaymentStatus = enums.PaymentStatusCODCollected
		}
		if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now

		return s.ledger.Settle(ctx, tx, order)
	})
}

// Cancel aborts a pending or confirmed order: stock goes back, and if the
// seller share was accrued it is reversed. Dispatched and delivered orders
// cannot be cancelled here.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if !actorOwns(order, actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or seller may cancel")
		}
		if order.Status == enums.OrderStatusCancelled {
			return nil
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return transitionConflict(order.Status, enums.OrderStatusCancelled)
		}
		wasAccrued := order.Status == enums.OrderStatusConfirmed

		now := time.Now().UTC()
		if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		items, err := s.repo.WithTx(tx).FindItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order items")
		}
		catalogRepo := s.catalog.WithTx(tx)
		for _, item := range items {
			if err := catalogRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
				return err
			}
		}

		if wasAccrued {
			return s.ledger.Reverse(ctx, tx, order)
		}
		return nil
	})
}

// transition runs a lifecycle step against the row-locked order and reloads
// the full order for the response.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context, tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking order")
		}
		return fn(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orderID)
}

func actorOwns(order *models.Order, actor Actor) bool {
	if actor.Role == enums.MemberRoleAdmin {
		return true
	}
	return order.BuyerID == actor.ID || order.SellerID == actor.ID
}

func requireSeller(order *models.Order, actor Actor) error {
	if actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if order.SellerID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may update this order")
	}
	return nil
}

func transitionConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
