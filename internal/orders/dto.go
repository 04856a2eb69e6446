package orders

import (
	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// CreateOrderItemInput is one requested line of a new order.
type CreateOrderItemInput struct {
	ProductID      uuid.UUID            `json:"product_id" validate:"required"`
	Qty            int                  `json:"qty" validate:"required,gte=1"`
	GiftPackaging  bool                 `json:"gift_packaging"`
	Customizations types.Customizations `json:"customizations,omitempty"`
}

// CreateOrderInput is everything the order service needs to place an order.
// Prices are never taken from the caller; they are read from the catalog
// inside the creation transaction.
type CreateOrderInput struct {
	BuyerID       uuid.UUID
	PaymentMethod enums.PaymentMethod
	Address       types.Address
	Items         []CreateOrderItemInput
}

// Actor is the authenticated principal acting on an order.
type Actor struct {
	ID   uuid.UUID
	Role enums.MemberRole
}
