package wallet

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
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL UNIQUE,
  available_cents INTEGER NOT NULL DEFAULT 0,
  pending_cents INTEGER NOT NULL DEFAULT 0,
  total_earned_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  related_order_id TEXT,
  related_withdrawal_id TEXT,
  created_at DATETIME,
  UNIQUE (wallet_id, type, related_order_id)
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func newTestLedger(db *gorm.DB) (Service, Repository) {
	repo := NewRepository(db)
	return NewService(repo, nil, 5, nil), repo
}

func TestSellerShareCents(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, 5, nil)

	cases := []struct {
		total int
		want  int
	}{
		{total: 1000, want: 950},
		{total: 50000, want: 47500},
		{total: 999, want: 949},
		{total: 1, want: 0},
		{total: 0, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, svc.SellerShareCents(tc.total), "total %d", tc.total)
	}
}

func TestAccrueAndSettleLifecycle(t *testing.T) {
	db := setupWalletTestDB(t)
	svc, repo := newTestLedger(db)
	ctx := context.Background()

	order := &models.Order{ID: uuid.New(), SellerID: uuid.New(), TotalCents: 1000}

	require.NoError(t, svc.AccruePending(ctx, db, order))

	w, err := repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 0, w.AvailableCents)
	assert.Equal(t, 950, w.PendingCents)
	assert.Equal(t, 950, w.TotalEarnedCents)

	// Retrying the accrual must not double-credit.
	require.NoError(t, svc.AccruePending(ctx, db, order))
	w, err = repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 950, w.PendingCents)

	require.NoError(t, svc.Settle(ctx, db, order))
	w, err = repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 950, w.AvailableCents)
	assert.Equal(t, 0, w.PendingCents)
	assert.Equal(t, 950, w.TotalEarnedCents)

	// Duplicate delivery callbacks settle exactly once.
	require.NoError(t, svc.Settle(ctx, db, order))
	w, err = repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 950, w.AvailableCents)

	txns, err := repo.ListTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestSettleWithoutAccrualFails(t *testing.T) {
	db := setupWalletTestDB(t)
	svc, repo := newTestLedger(db)
	ctx := context.Background()

	sellerID := uuid.New()
	require.NoError(t, repo.Create(ctx, &models.Wallet{SellerID: sellerID}))

	order := &models.Order{ID: uuid.New(), SellerID: sellerID, TotalCents: 1000}
	err := svc.Settle(ctx, db, order)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestReverseClearsAccrual(t *testing.T) {
	db := setupWalletTestDB(t)
	svc, repo := newTestLedger(db)
	ctx := context.Background()

	order := &models.Order{ID: uuid.New(), SellerID: uuid.New(), TotalCents: 2000}
	require.NoError(t, svc.AccruePending(ctx, db, order))
	require.NoError(t, svc.Reverse(ctx, db, order))

	w, err := repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 0, w.PendingCents)
	assert.Equal(t, 0, w.TotalEarnedCents)

	// The ledger keeps both sides of the story.
	txns, err := repo.ListTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	// A second reversal changes nothing.
	require.NoError(t, svc.Reverse(ctx, db, order))
	w, err = repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 0, w.PendingCents)
}

func TestReverseAfterSettleIsRefused(t *testing.T) {
	db := setupWalletTestDB(t)
	svc, repo := newTestLedger(db)
	ctx := context.Background()

	order := &models.Order{ID: uuid.New(), SellerID: uuid.New(), TotalCents: 1000}
	require.NoError(t, svc.AccruePending(ctx, db, order))
	require.NoError(t, svc.Settle(ctx, db, order))

	err := svc.Reverse(ctx, db, order)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	w, findErr := repo.FindBySellerID(ctx, order.SellerID)
	require.NoError(t, findErr)
	assert.Equal(t, 950, w.AvailableCents)
}

func TestReverseWithoutWalletIsNoop(t *testing.T) {
	db := setupWalletTestDB(t)
	svc, _ := newTestLedger(db)

	order := &models.Order{ID: uuid.New(), SellerID: uuid.New(), TotalCents: 1000}
	require.NoError(t, svc.Reverse(context.Background(), db, order))
}

type stubWithdrawalLister struct {
	requests []models.WithdrawalRequest
}

func (s *stubWithdrawalLister) ListBySellerID(_ context.Context, _ uuid.UUID) ([]models.WithdrawalRequest, error) {
	return s.requests, nil
}

func TestOverview(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	lister := &stubWithdrawalLister{requests: []models.WithdrawalRequest{
		{ID: uuid.New(), AmountCents: 60000, Status: enums.WithdrawalStatusPending},
	}}
	svc := NewService(repo, lister, 5, nil)
	ctx := context.Background()

	sellerID := uuid.New()

	// Sellers who never earned see zero balances, not an error.
	overview, err := svc.Overview(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, sellerID, overview.Wallet.SellerID)
	assert.Equal(t, 0, overview.Wallet.AvailableCents)
	assert.Empty(t, overview.Transactions)

	order := &models.Order{ID: uuid.New(), SellerID: sellerID, TotalCents: 1000}
	require.NoError(t, svc.AccruePending(ctx, db, order))

	overview, err = svc.Overview(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 950, overview.Wallet.PendingCents)
	assert.Len(t, overview.Transactions, 1)
	assert.Len(t, overview.Withdrawals, 1)
}
