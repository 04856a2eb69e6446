package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/gateway"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  address_snapshot TEXT,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  subtotal_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  gift_fee_cents INTEGER NOT NULL DEFAULT 0,
  cod_fee_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payment_records (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  gateway_order_id TEXT NOT NULL,
  gateway_payment_id TEXT UNIQUE,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  verified INTEGER NOT NULL DEFAULT 0,
  verified_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

const testGatewaySecret = "test-secret"

type stubGateway struct {
	created int
}

func (g *stubGateway) CreateOrder(_ context.Context, amountCents int, receipt string) (*gateway.Order, error) {
	g.created++
	return &gateway.Order{
		ID:          "gw_" + receipt,
		AmountCents: amountCents,
		Currency:    "INR",
		Receipt:     receipt,
		Status:      "created",
	}, nil
}

func (g *stubGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return signature == gateway.SignPayload(testGatewaySecret, gatewayOrderID, gatewayPaymentID)
}

func (g *stubGateway) Currency() string {
	return "INR"
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type paymentsTestEnv struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
}

func newPaymentsTestEnv(t *testing.T) *paymentsTestEnv {
	t.Helper()
	db := setupPaymentsTestDB(t)
	gw := &stubGateway{}
	svc := NewService(NewRepository(db), gw, sqliteTxRunner{db: db}, nil)
	return &paymentsTestEnv{db: db, svc: svc, gateway: gw}
}

func (e *paymentsTestEnv) seedOnlineOrder(t *testing.T, buyerID uuid.UUID, totalCents int) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		SellerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusUnpaid,
		SubtotalCents: totalCents,
		TotalCents:    totalCents,
	}
	require.NoError(t, e.db.Create(order).Error)
	return order
}

func TestCreateIntentIsIdempotentPerOrder(t *testing.T) {
	env := newPaymentsTestEnv(t)
	buyerID := uuid.New()
	order := env.seedOnlineOrder(t, buyerID, 49000)
	ctx := context.Background()

	record, err := env.svc.CreateIntent(ctx, order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 49000, record.AmountCents)
	assert.Equal(t, "INR", record.Currency)
	assert.False(t, record.Verified)

	again, err := env.svc.CreateIntent(ctx, order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, again.ID)
	assert.Equal(t, 1, env.gateway.created)
}

func TestCreateIntentRejectsCODAndForeignOrders(t *testing.T) {
	env := newPaymentsTestEnv(t)
	buyerID := uuid.New()
	ctx := context.Background()

	cod := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		SellerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusCODPending,
		SubtotalCents: 1000,
		TotalCents:    2000,
	}
	require.NoError(t, env.db.Create(cod).Error)

	_, err := env.svc.CreateIntent(ctx, cod.ID, buyerID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	online := env.seedOnlineOrder(t, buyerID, 5000)
	_, err = env.svc.CreateIntent(ctx, online.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyMarksOrderPaidExactlyOnce(t *testing.T) {
	env := newPaymentsTestEnv(t)
	buyerID := uuid.New()
	order := env.seedOnlineOrder(t, buyerID, 49000)
	ctx := context.Background()

	record, err := env.svc.CreateIntent(ctx, order.ID, buyerID)
	require.NoError(t, err)

	paymentID := "pay_" + uuid.NewString()
	input := VerifyInput{
		OrderID:          order.ID,
		GatewayOrderID:   record.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        gateway.SignPayload(testGatewaySecret, record.GatewayOrderID, paymentID),
	}

	verified, err := env.svc.Verify(ctx, input)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	require.NotNil(t, verified.GatewayPaymentID)
	assert.Equal(t, paymentID, *verified.GatewayPaymentID)

	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)

	// The gateway may deliver the same completion twice.
	again, err := env.svc.Verify(ctx, input)
	require.NoError(t, err)
	assert.True(t, again.Verified)
	assert.Equal(t, verified.VerifiedAt.Unix(), again.VerifiedAt.Unix())
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	env := newPaymentsTestEnv(t)
	buyerID := uuid.New()
	order := env.seedOnlineOrder(t, buyerID, 49000)
	ctx := context.Background()

	record, err := env.svc.CreateIntent(ctx, order.ID, buyerID)
	require.NoError(t, err)

	_, err = env.svc.Verify(ctx, VerifyInput{
		OrderID:          order.ID,
		GatewayOrderID:   record.GatewayOrderID,
		GatewayPaymentID: "pay_tampered",
		Signature:        "forged",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSignatureMismatch))

	// A failed verification must leave the order unpaid.
	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusUnpaid, stored.PaymentStatus)

	var rec models.PaymentRecord
	require.NoError(t, env.db.First(&rec, "order_id = ?", order.ID).Error)
	assert.False(t, rec.Verified)
}

func TestVerifyWithoutIntentIsNotFound(t *testing.T) {
	env := newPaymentsTestEnv(t)
	_, err := env.svc.Verify(context.Background(), VerifyInput{
		OrderID:          uuid.New(),
		GatewayOrderID:   "gw_x",
		GatewayPaymentID: "pay_x",
		Signature:        "sig",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
