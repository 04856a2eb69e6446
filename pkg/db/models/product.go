package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog this core depends on: price and stock.
// Catalog CRUD lives in the catalog service; the settlement core only reads
// price/stock and decrements stock when an order is placed.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID   uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	PriceCents int       `gorm:"column:price_cents;not null" json:"price_cents"`
	Stock      int       `gorm:"column:stock;not null;default:0" json:"stock"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
