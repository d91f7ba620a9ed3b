package models

import (
	"testing"

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

func TestSaleTotalRoundsEachLine(t *testing.T) {
	// Two lines of 1.005 round to 1.01 each before summing. Rounding the
	// grand total instead would lose a cent.
	lines := []SaleLine{
		{Quantity: decimal.NewFromInt(1), UnitPrice: dec(t, "1.005")},
		{Quantity: decimal.NewFromInt(1), UnitPrice: dec(t, "1.005")},
	}
	got := SaleTotal(lines, 2)
	if !got.Equal(dec(t, "2.02")) {
		t.Fatalf("expected 2.02, got %s", got)
	}
}

func TestSaleTotalQuantityTimesPrice(t *testing.T) {
	lines := []SaleLine{
		{Quantity: decimal.NewFromInt(3), UnitPrice: dec(t, "0.333")},
		{Quantity: decimal.NewFromInt(2), UnitPrice: dec(t, "10")},
	}
	got := SaleTotal(lines, 2)
	if !got.Equal(dec(t, "21.00")) {
		t.Fatalf("expected 21.00, got %s", got)
	}
}

func TestSaleTotalZeroDigitCurrency(t *testing.T) {
	lines := []SaleLine{
		{Quantity: decimal.NewFromInt(1), UnitPrice: dec(t, "499.5")},
	}
	got := SaleTotal(lines, 0)
	if !got.Equal(dec(t, "500")) {
		t.Fatalf("expected 500, got %s", got)
	}
}

func TestSaleTotalPrefersCachedAmount(t *testing.T) {
	cached := dec(t, "50")
	sale := Sale{
		TotalAmount:    &cached,
		CurrencyDigits: 2,
		Lines: []SaleLine{
			{Quantity: decimal.NewFromInt(1), UnitPrice: dec(t, "99")},
		},
	}
	if got := sale.Total(); !got.Equal(cached) {
		t.Fatalf("expected cached total 50, got %s", got)
	}

	sale.TotalAmount = nil
	if got := sale.Total(); !got.Equal(dec(t, "99")) {
		t.Fatalf("expected line total 99, got %s", got)
	}
}

func TestSaleRecNamePrefersReference(t *testing.T) {
	sale := Sale{Number: "7", Reference: "POS-42"}
	if got := sale.RecName(); got != "POS-42" {
		t.Fatalf("expected POS-42, got %q", got)
	}
	sale.Reference = ""
	if got := sale.RecName(); got != "7" {
		t.Fatalf("expected 7, got %q", got)
	}
}
