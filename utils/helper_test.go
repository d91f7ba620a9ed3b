package utils

import (
	"strings"
	"testing"
	"time"
)

func TestExecTemplateOptionalFilter(t *testing.T) {
	const sqlT = `SELECT id FROM sales WHERE business_id = @businessId
	{{- if .partyId }} AND party_id = @partyId{{- end }}`

	withFilter, err := ExecTemplate(sqlT, map[string]interface{}{"partyId": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(withFilter, "AND party_id = @partyId") {
		t.Fatalf("filter branch missing:\n%s", withFilter)
	}

	without, err := ExecTemplate(sqlT, map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(without, "party_id") {
		t.Fatalf("filter branch must be absent:\n%s", without)
	}
}

func TestExecTemplateParseError(t *testing.T) {
	if _, err := ExecTemplate(`{{ if }}`, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConvertToDateUsesTimezoneCalendar(t *testing.T) {
	// 20:00 UTC is already the next day in Yangon (UTC+6:30).
	utcEvening := time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC)
	got, err := ConvertToDate(utcEvening, "Asia/Yangon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Fatalf("expected 2024-03-15, got %s", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Fatalf("expected local midnight, got %s", got)
	}
}

func TestDereferencePtr(t *testing.T) {
	var nilPtr *int
	if got := DereferencePtr(nilPtr); got != 0 {
		t.Fatalf("expected zero value, got %d", got)
	}
	if got := DereferencePtr(nilPtr, 9); got != 9 {
		t.Fatalf("expected default 9, got %d", got)
	}
	v := 4
	if got := DereferencePtr(&v, 9); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestNilIfEmpty(t *testing.T) {
	if got := NilIfEmpty(""); got != nil {
		t.Fatalf("empty string must map to nil, got %v", got)
	}
	got := NilIfEmpty("cash")
	if got == nil || *got != "cash" {
		t.Fatalf("expected pointer to cash, got %v", got)
	}
	if n := NilIfEmpty(0); n != nil {
		t.Fatalf("zero int must map to nil, got %v", n)
	}
}
