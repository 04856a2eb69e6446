package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// WithdrawalRequest is a seller's request to pay out available balance. The
// amount is held out of the wallet the moment the request is created and only
// returned if an admin rejects it. Immutable once completed.
type WithdrawalRequest struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID      uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	AmountCents   int                    `gorm:"column:amount_cents;not null" json:"amount_cents"`
	BankDetails   types.BankDetails      `gorm:"column:bank_details;type:jsonb;serializer:json" json:"bank_details"`
	Status        enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'" json:"status"`
	FailureReason *string                `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	RequestedAt   time.Time              `gorm:"column:requested_at;autoCreateTime" json:"requested_at"`
	ResolvedAt    *time.Time             `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}
