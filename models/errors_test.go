package models

import (
	"errors"
	"testing"
)

func TestPaymentErrorsNameTheRecord(t *testing.T) {
	var err error = &MissingInvoiceError{Reference: "POS-42"}
	if got := err.Error(); got != "sale POS-42 is invoiced on order but has no invoice yet" {
		t.Fatalf("unexpected message: %q", got)
	}

	err = &NoDraftStatementError{Journal: "Cash"}
	if got := err.Error(); got != "no draft statement open for journal Cash" {
		t.Fatalf("unexpected message: %q", got)
	}

	err = &MissingReceivableAccountError{Party: "U Ba"}
	if got := err.Error(); got != "party U Ba has no receivable account configured" {
		t.Fatalf("unexpected message: %q", got)
	}

	err = &NoSaleDeviceError{Username: "cashier1"}
	if got := err.Error(); got != "user cashier1 has no sale device assigned" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestPaymentErrorsMatchAs(t *testing.T) {
	wrapped := errors.New("outer: " + (&NoDraftStatementError{Journal: "Cash"}).Error())
	var target *NoDraftStatementError
	if errors.As(wrapped, &target) {
		t.Fatal("plain error must not match the typed target")
	}

	var err error = &NoDraftStatementError{Journal: "Cash"}
	if !errors.As(err, &target) {
		t.Fatal("typed error must match")
	}
	if target.Journal != "Cash" {
		t.Fatalf("unexpected journal: %q", target.Journal)
	}
}
