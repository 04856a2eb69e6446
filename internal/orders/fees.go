package orders

import (
	"github.com/meshbazaar/marketplace-backend/pkg/config"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
)

// FeeBreakdown is the deterministic fee computation for an order. Given the
// same subtotal, gift count and payment method it always yields the same
// total, so the stored total can be audited from the item snapshots alone.
type FeeBreakdown struct {
	SubtotalCents    int `json:"subtotal_cents"`
	DeliveryFeeCents int `json:"delivery_fee_cents"`
	GiftFeeCents     int `json:"gift_fee_cents"`
	CODFeeCents      int `json:"cod_fee_cents"`
	TotalCents       int `json:"total_cents"`
}

// ComputeFees applies the fee policy: flat delivery fee below the free
// threshold, gift packaging charged per flagged line, COD surcharge for
// cash orders.
func ComputeFees(policy config.FeesConfig, subtotalCents, giftLineCount int, method enums.PaymentMethod) FeeBreakdown {
	fees := FeeBreakdown{SubtotalCents: subtotalCents}

	if subtotalCents < policy.FreeDeliveryThresholdCents {
		fees.DeliveryFeeCents = policy.DeliveryFeeCents
	}
	fees.GiftFeeCents = policy.GiftPackagingFeeCents * giftLineCount
	if method == enums.PaymentMethodCOD {
		fees.CODFeeCents = policy.CODFeeCents
	}

	fees.TotalCents = subtotalCents + fees.DeliveryFeeCents + fees.GiftFeeCents + fees.CODFeeCents
	return fees
}
