package gateway

import "testing"

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := "shhh"
	orderID := "gw_order_123"
	paymentID := "pay_456"

	sig := SignPayload(secret, orderID, paymentID)
	if !verifySignature(secret, orderID, paymentID, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "shhh"
	sig := SignPayload(secret, "gw_order_123", "pay_456")

	cases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
	}{
		{name: "different payment id", orderID: "gw_order_123", paymentID: "pay_other", signature: sig},
		{name: "different order id", orderID: "gw_order_999", paymentID: "pay_456", signature: sig},
		{name: "forged signature", orderID: "gw_order_123", paymentID: "pay_456", signature: "deadbeef"},
		{name: "empty signature", orderID: "gw_order_123", paymentID: "pay_456", signature: ""},
		{name: "empty payment id", orderID: "gw_order_123", paymentID: "", signature: sig},
	}
	for _, tc := range cases {
		if verifySignature(secret, tc.orderID, tc.paymentID, tc.signature) {
			t.Fatalf("%s: expected verification to fail", tc.name)
		}
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	sig := SignPayload("secret-a", "gw_order_123", "pay_456")
	if verifySignature("secret-b", "gw_order_123", "pay_456", sig) {
		t.Fatal("expected verification with a different secret to fail")
	}
}
