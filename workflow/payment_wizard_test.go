package workflow

import (
	"testing"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestDefaultPaymentAmount(t *testing.T) {
	total := dec(t, "100")

	// first payment suggests the full total
	if got := DefaultPaymentAmount(total, decimal.Zero); !got.Equal(total) {
		t.Fatalf("expected 100, got %s", got)
	}
	// later payments suggest the open balance
	if got := DefaultPaymentAmount(total, dec(t, "30")); !got.Equal(dec(t, "70")) {
		t.Fatalf("expected 70, got %s", got)
	}
	// overpayment suggests the (negative) change
	if got := DefaultPaymentAmount(total, dec(t, "120")); !got.Equal(dec(t, "-20")) {
		t.Fatalf("expected -20, got %s", got)
	}
}

func TestPaymentNextState(t *testing.T) {
	total := dec(t, "100")

	// partial payment keeps the session on the form
	state, settle := paymentNextState(total, dec(t, "40"), models.SaleStateDraft)
	if state != PaymentStateStart || settle {
		t.Fatalf("partial payment: got state=%s settle=%v", state, settle)
	}

	// covering a draft sale ends the session and triggers settlement
	state, settle = paymentNextState(total, total, models.SaleStateDraft)
	if state != PaymentStateEnd || !settle {
		t.Fatalf("full payment on draft: got state=%s settle=%v", state, settle)
	}

	// a sale that already left draft was settled in an earlier session
	state, settle = paymentNextState(total, total, models.SaleStateProcessing)
	if state != PaymentStateEnd || settle {
		t.Fatalf("full payment on processing: got state=%s settle=%v", state, settle)
	}
	state, settle = paymentNextState(total, total, models.SaleStateDone)
	if state != PaymentStateEnd || settle {
		t.Fatalf("full payment on done: got state=%s settle=%v", state, settle)
	}

	// overpayment is not equality; the session stays open
	state, settle = paymentNextState(total, dec(t, "120"), models.SaleStateDraft)
	if state != PaymentStateStart || settle {
		t.Fatalf("overpayment: got state=%s settle=%v", state, settle)
	}
}
