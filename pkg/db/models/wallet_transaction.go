package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger entry. Never updated, never
// deleted. The composite unique index keeps per-order lifecycle events (the
// accrual, the settlement transfer, the reversal) idempotent under retry.
type WalletTransaction struct {
	ID                  uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WalletID            uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index;uniqueIndex:ux_wallet_txn_order_type" json:"wallet_id"`
	Type                enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null;uniqueIndex:ux_wallet_txn_order_type" json:"type"`
	AmountCents         int                         `gorm:"column:amount_cents;not null" json:"amount_cents"`
	RelatedOrderID      *uuid.UUID                  `gorm:"column:related_order_id;type:uuid;uniqueIndex:ux_wallet_txn_order_type" json:"related_order_id,omitempty"`
	RelatedWithdrawalID *uuid.UUID                  `gorm:"column:related_withdrawal_id;type:uuid" json:"related_withdrawal_id,omitempty"`
	CreatedAt           time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
