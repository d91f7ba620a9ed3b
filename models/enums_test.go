package models

import (
	"testing"
	"time"
)

func TestParseSaleState(t *testing.T) {
	state, err := ParseSaleState("processing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != SaleStateProcessing {
		t.Fatalf("expected processing, got %s", state)
	}
	if _, err := ParseSaleState("shipped"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestSaleStateTotalCached(t *testing.T) {
	for _, state := range []SaleState{SaleStateDraft, SaleStateQuotation, SaleStateCancelled} {
		if state.TotalCached() {
			t.Fatalf("state %s must not report a cached total", state)
		}
	}
	for _, state := range []SaleState{SaleStateConfirmed, SaleStateProcessing, SaleStateDone} {
		if !state.TotalCached() {
			t.Fatalf("state %s must report a cached total", state)
		}
	}
}

func TestParseOriginKind(t *testing.T) {
	kind, err := ParseOriginKind("SL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != OriginKindSaleLine {
		t.Fatalf("expected sale line origin, got %s", kind)
	}
	if _, err := ParseOriginKind("XX"); err == nil {
		t.Fatal("expected error for unknown origin kind")
	}
}

func TestUserRoleLabel(t *testing.T) {
	if RoleAdmin.Label() != "Admin" || RoleOwner.Label() != "Owner" || RoleCashier.Label() != "Cashier" {
		t.Fatalf("unexpected labels: %s %s %s", RoleAdmin.Label(), RoleOwner.Label(), RoleCashier.Label())
	}
}

func TestMyDateStringUnmarshal(t *testing.T) {
	var d MyDateString
	if err := d.UnmarshalJSON([]byte(`"2024-03-15"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := time.Time(d)
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Fatalf("unexpected date: %s", got)
	}

	if err := d.UnmarshalJSON([]byte(`"2024-03-15T08:30:00"`)); err != nil {
		t.Fatalf("datetime form must parse: %v", err)
	}
	if err := d.UnmarshalJSON([]byte(`20240315`)); err == nil {
		t.Fatal("bare number must be rejected")
	}
}

func TestMyDateStringStartOfDayUTC(t *testing.T) {
	var d MyDateString
	if err := d.UnmarshalJSON([]byte(`"2024-03-15"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.StartOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Yangon is UTC+6:30, so local midnight is half past 17 the previous day.
	want := time.Date(2024, 3, 14, 17, 30, 0, 0, time.UTC)
	if got := time.Time(d); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestMyDateStringEndOfDayUTC(t *testing.T) {
	var d MyDateString
	if err := d.UnmarshalJSON([]byte(`"2024-03-15"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.EndOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := time.Time(d)
	if got.Day() != 15 || got.Hour() != 17 || got.Minute() != 29 || got.Second() != 59 {
		t.Fatalf("expected 17:29:59 on the 15th UTC, got %s", got)
	}
}

func TestMyDateStringNilReceiverNoop(t *testing.T) {
	var d *MyDateString
	if err := d.StartOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("nil receiver must be a no-op, got %v", err)
	}
	if err := d.EndOfDayUTCTime(""); err != nil {
		t.Fatalf("nil receiver must be a no-op, got %v", err)
	}
}
