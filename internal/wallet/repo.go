package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/pkg/db"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
)

// Repository manages persistence for wallets and their append-only
// transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	FindBySellerIDForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	AddBalances(ctx context.Context, walletID uuid.UUID, availableDelta, pendingDelta, earnedDelta int) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	HasOrderTransaction(ctx context.Context, walletID, orderID uuid.UUID, txnType enums.WalletTransactionType) (bool, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindBySellerIDForUpdate locks the wallet row for the life of the enclosing
// transaction. Every balance mutation goes through this lock.
func (r *repository) FindBySellerIDForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.LockForUpdate(r.db.WithContext(ctx)).
		Where("seller_id = ?", sellerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) AddBalances(ctx context.Context, walletID uuid.UUID, availableDelta, pendingDelta, earnedDelta int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET available_cents = available_cents + ?,
			pending_cents = pending_cents + ?,
			total_earned_cents = total_earned_cents + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, availableDelta, pendingDelta, earnedDelta, walletID).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) HasOrderTransaction(ctx context.Context, walletID, orderID uuid.UUID, txnType enums.WalletTransactionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("wallet_id = ? AND related_order_id = ? AND type = ?", walletID, orderID, txnType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
