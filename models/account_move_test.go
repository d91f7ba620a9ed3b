package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignedSum(t *testing.T) {
	lines := []MoveLine{
		{Debit: dec(t, "100")},
		{Credit: dec(t, "60")},
		{Credit: dec(t, "40")},
	}
	if got := SignedSum(lines); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}

	lines = append(lines, MoveLine{Debit: dec(t, "0.01")})
	if got := SignedSum(lines); !got.Equal(dec(t, "0.01")) {
		t.Fatalf("expected 0.01, got %s", got)
	}
}

func TestReconcilableToZero(t *testing.T) {
	if ReconcilableToZero(nil) {
		t.Fatal("empty group must not reconcile")
	}

	balanced := []MoveLine{
		{Debit: dec(t, "25")},
		{Credit: dec(t, "25")},
	}
	if !ReconcilableToZero(balanced) {
		t.Fatal("balanced unreconciled group must reconcile")
	}

	open := []MoveLine{
		{Debit: dec(t, "25")},
		{Credit: dec(t, "20")},
	}
	if ReconcilableToZero(open) {
		t.Fatal("group with an open balance must not reconcile")
	}

	rid := 7
	balanced[0].ReconciliationId = &rid
	if ReconcilableToZero(balanced) {
		t.Fatal("a line that already carries a reconciliation blocks the group")
	}

	// Partial payments net to zero together even when no single pair does.
	split := []MoveLine{
		{Debit: dec(t, "150")},
		{Credit: dec(t, "100")},
		{Credit: dec(t, "50")},
	}
	if !ReconcilableToZero(split) {
		t.Fatal("split payments covering the debit must reconcile")
	}
}

func TestSignedSumDecimalPrecision(t *testing.T) {
	// 0.1 + 0.2 - 0.3 must be exactly zero in ledger arithmetic.
	lines := []MoveLine{
		{Debit: dec(t, "0.1")},
		{Debit: dec(t, "0.2")},
		{Credit: dec(t, "0.3")},
	}
	if got := SignedSum(lines); !got.IsZero() {
		t.Fatalf("expected exact zero, got %s", got)
	}
	if !ReconcilableToZero(lines) {
		t.Fatal("expected group to reconcile")
	}
}

func TestMoveLineBalance(t *testing.T) {
	one := decimal.NewFromInt(1)
	if got := SignedSum([]MoveLine{{Debit: one, Credit: one}}); !got.IsZero() {
		t.Fatalf("debit and credit on one line must cancel, got %s", got)
	}
}
