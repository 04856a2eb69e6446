package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecord tracks the external gateway state for an online order.
// One-to-one with the order; COD orders have none. The unique index on
// order_id is what makes duplicate verification deliveries collapse into a
// single transition.
type PaymentRecord struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payment_records_order" json:"order_id"`
	GatewayOrderID   string     `gorm:"column:gateway_order_id;not null;index" json:"gateway_order_id"`
	GatewayPaymentID *string    `gorm:"column:gateway_payment_id;uniqueIndex:ux_payment_records_gateway_payment" json:"gateway_payment_id,omitempty"`
	AmountCents      int        `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency         string     `gorm:"column:currency;not null" json:"currency"`
	Verified         bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	VerifiedAt       *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
