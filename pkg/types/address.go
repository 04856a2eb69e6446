package types

import "strings"

// Address is the delivery address snapshot stored on an order. It is copied
// from the buyer's address book at order time; later edits to the saved
// address never change a placed order.
type Address struct {
	Name       string  `json:"name" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
}

// IsZero reports whether the snapshot carries no usable address.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}
