package gateway

import (
	"context"
	"testing"
)

func TestSignatureRoundTrip(t *testing.T) {
	c := Client{KeyID: "key_test", Secret: "topsecret"}

	sig := Sign("order_abc", "pay_123", "topsecret")
	if !c.VerifySignature("order_abc", "pay_123", sig) {
		t.Fatalf("valid signature did not verify")
	}
	if c.VerifySignature("order_abc", "pay_123", sig+"00") {
		t.Fatalf("tampered signature verified")
	}
	if c.VerifySignature("order_abc", "pay_999", sig) {
		t.Fatalf("signature for a different payment verified")
	}
	if c.VerifySignature("order_abc", "pay_123", Sign("order_abc", "pay_123", "wrongsecret")) {
		t.Fatalf("signature under a different secret verified")
	}
}

func TestLocalModeMintsOrders(t *testing.T) {
	c := Client{Secret: "topsecret"} // no BaseURL: local mode

	order, err := c.CreateOrder(context.Background(), 45000, "INR", "application_1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.ID == "" {
		t.Fatalf("local order has no id")
	}
	if order.Amount != 45000 || order.Currency != "INR" || order.Receipt != "application_1" {
		t.Fatalf("order fields not carried through: %+v", order)
	}

	second, err := c.CreateOrder(context.Background(), 45000, "INR", "application_1")
	if err != nil {
		t.Fatalf("second CreateOrder returned error: %v", err)
	}
	if second.ID == order.ID {
		t.Fatalf("local order ids must be unique, got %s twice", order.ID)
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	c := Client{Secret: "topsecret"}
	if _, err := c.CreateOrder(context.Background(), 0, "INR", "r"); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := c.CreateOrder(context.Background(), -500, "INR", "r"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
