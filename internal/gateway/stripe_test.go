package gateway

import (
	"testing"

	"github.com/stripe/stripe-go/v82"

	"github.com/yourorg/propertylease/internal/domain"
)

func TestMapIntentStatus(t *testing.T) {
	cases := []struct {
		in   stripe.PaymentIntentStatus
		want domain.GatewayStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, domain.GatewaySucceeded},
		{stripe.PaymentIntentStatusRequiresAction, domain.GatewayRequiresAction},
		{stripe.PaymentIntentStatusRequiresConfirmation, domain.GatewayRequiresAction},
		{stripe.PaymentIntentStatusProcessing, domain.GatewayRequiresAction},
		{stripe.PaymentIntentStatusCanceled, domain.GatewayFailed},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, domain.GatewayFailed},
	}
	for _, tc := range cases {
		if got := mapIntentStatus(tc.in); got != tc.want {
			t.Fatalf("mapIntentStatus(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestResultFromIntent(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.PaymentIntentStatusSucceeded,
		LatestCharge: &stripe.Charge{
			ID:         "ch_1",
			ReceiptURL: "https://receipts.example.com/ch_1",
		},
	}
	res := resultFromIntent(pi)
	if res.Status != domain.GatewaySucceeded {
		t.Fatalf("status = %s, want succeeded", res.Status)
	}
	if res.IntentID != "pi_1" || res.ChargeID != "ch_1" {
		t.Fatalf("ids not mapped: %+v", res)
	}
	if res.ReceiptURL != "https://receipts.example.com/ch_1" {
		t.Fatalf("receipt url not mapped: %q", res.ReceiptURL)
	}

	// No expanded charge yet, e.g. requires_action.
	bare := resultFromIntent(&stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusProcessing})
	if bare.ChargeID != "" || bare.Status != domain.GatewayRequiresAction {
		t.Fatalf("bare intent mapped wrong: %+v", bare)
	}
}
