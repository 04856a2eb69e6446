package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// Order is a single-seller order placed by a buyer. The address snapshot is
// copied at creation time, and the total must always equal the item subtotal
// plus the three fee lines.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	SellerID         uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	AddressSnapshot  types.Address       `gorm:"column:address_snapshot;type:jsonb;serializer:json" json:"address_snapshot"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null" json:"payment_method"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'" json:"status"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'" json:"payment_status"`
	SubtotalCents    int                 `gorm:"column:subtotal_cents;not null" json:"subtotal_cents"`
	DeliveryFeeCents int                 `gorm:"column:delivery_fee_cents;not null;default:0" json:"delivery_fee_cents"`
	GiftFeeCents     int                 `gorm:"column:gift_fee_cents;not null;default:0" json:"gift_fee_cents"`
	CODFeeCents      int                 `gorm:"column:cod_fee_cents;not null;default:0" json:"cod_fee_cents"`
	TotalCents       int                 `gorm:"column:total_cents;not null" json:"total_cents"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	PaymentRecord    *PaymentRecord      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment_record,omitempty"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
