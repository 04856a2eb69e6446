package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// OrderItem captures the immutable snapshot of each line within an order.
// Unit price and customizations are frozen at order time.
type OrderItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Name           string               `gorm:"column:name;not null" json:"name"`
	Qty            int                  `gorm:"column:qty;not null" json:"qty"`
	UnitPriceCents int                  `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	GiftPackaging  bool                 `gorm:"column:gift_packaging;not null;default:false" json:"gift_packaging"`
	Customizations types.Customizations `gorm:"column:customizations;type:jsonb;serializer:json" json:"customizations,omitempty"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
