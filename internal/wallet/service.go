package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/pkg/db"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/metrics"
)

// Ledger is the order lifecycle's view of the wallet: accrue the seller share
// when an order is confirmed, settle it on delivery, reverse it on cancel.
// Callers pass the open transaction so the ledger entry and the order row
// commit or roll back together.
type Ledger interface {
	AccruePending(ctx context.Context, tx *gorm.DB, order *models.Order) error
	Settle(ctx context.Context, tx *gorm.DB, order *models.Order) error
	Reverse(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// Service exposes the ledger plus the seller-facing read surface.
type Service interface {
	Ledger
	SellerShareCents(totalCents int) int
	Overview(ctx context.Context, sellerID uuid.UUID) (*Overview, error)
}

// Overview is the seller's wallet snapshot: balances, the transaction log and
// withdrawal history.
type Overview struct {
	Wallet       models.Wallet              `json:"wallet"`
	Transactions []models.WalletTransaction `json:"transactions"`
	Withdrawals  []models.WithdrawalRequest `json:"withdrawals"`
}

// withdrawalLister is satisfied by the withdrawals repository without this
// package importing it.
type withdrawalLister interface {
	ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]models.WithdrawalRequest, error)
}

type service struct {
	repo              Repository
	withdrawals       withdrawalLister
	commissionPercent int
	metrics           *metrics.CoreMetrics
}

// NewService wires the wallet ledger.
func NewService(repo Repository, withdrawals withdrawalLister, commissionPercent int, coreMetrics *metrics.CoreMetrics) Service {
	return &service{
		repo:              repo,
		withdrawals:       withdrawals,
		commissionPercent: commissionPercent,
		metrics:           coreMetrics,
	}
}

// SellerShareCents computes the seller's cut of an order total after platform
// commission, rounded down to the cent so the platform never overpays.
func (s *service) SellerShareCents(totalCents int) int {
	if totalCents <= 0 {
		return 0
	}
	share := decimal.NewFromInt(int64(totalCents)).
		Mul(decimal.NewFromInt(int64(100 - s.commissionPercent))).
		Div(decimal.NewFromInt(100)).
		Floor()
	return int(share.IntPart())
}

// AccruePending credits the seller share into the pending bucket when an
// order is confirmed. Safe to retry: the ledger's composite unique index
// collapses a duplicate accrual into a no-op.
func (s *service) AccruePending(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)

	wallet, err := s.lockOrCreateWallet(ctx, repo, order.SellerID)
	if err != nil {
		return err
	}

	share := s.SellerShareCents(order.TotalCents)
	orderID := order.ID
	txn := &models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           enums.WalletTxnCreditPending,
		AmountCents:    share,
		RelatedOrderID: &orderID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "ux_wallet_txn_order_type") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording accrual")
	}

	return repo.AddBalances(ctx, wallet.ID, 0, share, share)
}

// Settle moves the accrued share from pending to available once the order is
// delivered. Idempotent the same way AccruePending is.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindBySellerIDForUpdate(ctx, order.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no wallet to settle into")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
	}

	accrued, err := repo.HasOrderTransaction(ctx, wallet.ID, order.ID, enums.WalletTxnCreditPending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking accrual")
	}
	if !accrued {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was never accrued").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	share := s.SellerShareCents(order.TotalCents)
	orderID := order.ID
	txn := &models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           enums.WalletTxnTransferPendingAvailable,
		AmountCents:    share,
		RelatedOrderID: &orderID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "ux_wallet_txn_order_type") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording settlement")
	}

	if err := repo.AddBalances(ctx, wallet.ID, share, -share, 0); err != nil {
		return err
	}
	s.metrics.IncSettlement()
	return nil
}

// Reverse backs an accrual out of the pending bucket when a confirmed order
// is cancelled. Refused after settlement: delivered money is no longer ours
// to claw back automatically.
func (s *service) Reverse(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindBySellerIDForUpdate(ctx, order.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
	}

	settled, err := repo.HasOrderTransaction(ctx, wallet.ID, order.ID, enums.WalletTxnTransferPendingAvailable)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking settlement")
	}
	if settled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already settled, accrual cannot be reversed").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	accrued, err := repo.HasOrderTransaction(ctx, wallet.ID, order.ID, enums.WalletTxnCreditPending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking accrual")
	}
	if !accrued {
		return nil
	}

	share := s.SellerShareCents(order.TotalCents)
	orderID := order.ID
	txn := &models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           enums.WalletTxnDebitWithdrawalReversal,
		AmountCents:    -share,
		RelatedOrderID: &orderID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "ux_wallet_txn_order_type") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording reversal")
	}

	return repo.AddBalances(ctx, wallet.ID, 0, -share, -share)
}

// Overview returns the seller's wallet state without creating anything. A
// seller who has never earned gets zero balances.
func (s *service) Overview(ctx context.Context, sellerID uuid.UUID) (*Overview, error) {
	overview := &Overview{
		Wallet:       models.Wallet{SellerID: sellerID},
		Transactions: []models.WalletTransaction{},
		Withdrawals:  []models.WithdrawalRequest{},
	}

	wallet, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return overview, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading wallet")
	}
	overview.Wallet = *wallet

	txns, err := s.repo.ListTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading wallet transactions")
	}
	if txns != nil {
		overview.Transactions = txns
	}

	if s.withdrawals != nil {
		withdrawals, err := s.withdrawals.ListBySellerID(ctx, sellerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading withdrawal history")
		}
		if withdrawals != nil {
			overview.Withdrawals = withdrawals
		}
	}

	return overview, nil
}

func (s *service) lockOrCreateWallet(ctx context.Context, repo Repository, sellerID uuid.UUID) (*models.Wallet, error) {
	wallet, err := repo.FindBySellerIDForUpdate(ctx, sellerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
	}

	fresh := &models.Wallet{SellerID: sellerID}
	if err := repo.Create(ctx, fresh); err != nil {
		// Lost a race to another accrual; lock the winner's row instead.
		if db.IsUniqueViolation(err, "ux_wallets_seller") {
			return repo.FindBySellerIDForUpdate(ctx, sellerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("creating wallet for seller %s", sellerID))
	}
	return repo.FindBySellerIDForUpdate(ctx, sellerID)
}
