package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a seller's balance buckets. Mutated only inside a transaction
// that also appends the matching WalletTransaction; the stored columns are a
// projection of the append-only transaction log.
//
// available == totalEarned − pending − completed withdrawals − pending holds.
type Wallet struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID         uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_wallets_seller" json:"seller_id"`
	AvailableCents   int       `gorm:"column:available_cents;not null;default:0" json:"available_cents"`
	PendingCents     int       `gorm:"column:pending_cents;not null;default:0" json:"pending_cents"`
	TotalEarnedCents int       `gorm:"column:total_earned_cents;not null;default:0" json:"total_earned_cents"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
