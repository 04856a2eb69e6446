package types

// Customization is a single question/answer pair a buyer filled in for an
// order item. The list is ordered and frozen once the order is placed.
type Customization struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

type Customizations []Customization
