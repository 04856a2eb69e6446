package withdrawals

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

func setupWithdrawalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL UNIQUE,
  available_cents INTEGER NOT NULL DEFAULT 0,
  pending_cents INTEGER NOT NULL DEFAULT 0,
  total_earned_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  related_order_id TEXT,
  related_withdrawal_id TEXT,
  created_at DATETIME,
  UNIQUE (wallet_id, type, related_order_id)
);`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  bank_details TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  requested_at DATETIME,
  resolved_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type withdrawalsTestEnv struct {
	db         *gorm.DB
	svc        Service
	walletRepo wallet.Repository
}

func newWithdrawalsTestEnv(t *testing.T) *withdrawalsTestEnv {
	t.Helper()
	db := setupWithdrawalsTestDB(t)
	walletRepo := wallet.NewRepository(db)
	svc := NewService(NewRepository(db), walletRepo, sqliteTxRunner{db: db}, 50000, nil)
	return &withdrawalsTestEnv{db: db, svc: svc, walletRepo: walletRepo}
}

func (e *withdrawalsTestEnv) seedWallet(t *testing.T, sellerID uuid.UUID, availableCents int) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		ID:               uuid.New(),
		SellerID:         sellerID,
		AvailableCents:   availableCents,
		TotalEarnedCents: availableCents,
	}
	require.NoError(t, e.db.Create(w).Error)
	return w
}

func testBankDetails() types.BankDetails {
	return types.BankDetails{
		AccountNumber:     "004501563111",
		IFSCCode:          "HDFC0000450",
		AccountHolderName: "Asha Rao",
	}
}

func TestRequestBelowMinimumRejected(t *testing.T) {
	env := newWithdrawalsTestEnv(t)
	sellerID := uuid.New()
	env.seedWallet(t, sellerID, 100000)

	_, err := env.svc.Request(context.Background(), RequestInput{
		SellerID:    sellerID,
		AmountCents: 49999,
		BankDetails: testBankDetails(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeBelowMinimum))
}

func TestRequestHoldsAvailableBalance(t *testing.T) {
	env := newWithdrawalsTestEnv(t)
	sellerID := uuid.New()
	env.seedWallet(t, sellerID, 100000)
	ctx := context.Background()

	request, err := env.svc.Request(ctx, RequestInput{
		SellerID:    sellerID,
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, request.Status)

	w, err := env.walletRepo.FindBySellerID(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 40000, w.AvailableCents)
	assert.Equal(t, 100000, w.TotalEarnedCents)

	txns, err := env.walletRepo.ListTransactions(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.WalletTxnDebitWithdrawalHold, txns[0].Type)
	assert.Equal(t, -60000, txns[0].AmountCents)

	// The remaining balance cannot cover a second request of the same size.
	_, err = env.svc.Request(ctx, RequestInput{
		SellerID:    sellerID,
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds))
}

func TestRequestWithoutWalletIsInsufficient(t *testing.T) {
	env := newWithdrawalsTestEnv(t)

	_, err := env.svc.Request(context.Background(), RequestInput{
		SellerID:    uuid.New(),
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds))
}

func TestResolveApproveThenComplete(t *testing.T) {
	env := newWithdrawalsTestEnv(t)
	sellerID := uuid.New()
	env.seedWallet(t, sellerID, 100000)
	ctx := context.Background()

	request, err := env.svc.Request(ctx, RequestInput{
		SellerID:    sellerID,
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	require.NoError(t, err)

	approved, err := env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusApproved, approved.Status)
	require.NotNil(t, approved.ResolvedAt)

	// Completion is only legal from approved.
	completed, err := env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)

	// The hold is never returned for a completed payout.
	w, err := env.walletRepo.FindBySellerID(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 40000, w.AvailableCents)
}

func TestResolveRejectRestoresBalance(t *testing.T) {
	env := newWithdrawalsTestEnv(t)
	sellerID := uuid.New()
	env.seedWallet(t, sellerID, 100000)
	ctx := context.Background()

	request, err := env.svc.Request(ctx, RequestInput{
		SellerID:    sellerID,
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	require.NoError(t, err)

	reason := "bank account verification failed"
	rejected, err := env.svc.Resolve(ctx, ResolveInput{
		RequestID:     request.ID,
		Status:        enums.WithdrawalStatusRejected,
		FailureReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.FailureReason)
	assert.Equal(t, reason, *rejected.FailureReason)

	w, err := env.walletRepo.FindBySellerID(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 100000, w.AvailableCents)

	txns, err := env.walletRepo.ListTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestResolveIllegalTransitions(t *testing.T) {
	env := newWithdrawalsTestEnv(t)
	sellerID := uuid.New()
	env.seedWallet(t, sellerID, 100000)
	ctx := context.Background()

	request, err := env.svc.Request(ctx, RequestInput{
		SellerID:    sellerID,
		AmountCents: 60000,
		BankDetails: testBankDetails(),
	})
	require.NoError(t, err)

	// Completing a pending request skips approval.
	_, err = env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusCompleted})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusPending})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	reason := "duplicate"
	_, err = env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusRejected, FailureReason: &reason})
	require.NoError(t, err)

	// A rejected request cannot be re-approved and re-rejecting is a no-op.
	_, err = env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusApproved})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	again, err := env.svc.Resolve(ctx, ResolveInput{RequestID: request.ID, Status: enums.WithdrawalStatusRejected, FailureReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusRejected, again.Status)

	// The double rejection must not restore the hold twice.
	w, err := env.walletRepo.FindBySellerID(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, 100000, w.AvailableCents)
}
