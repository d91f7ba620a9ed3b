package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2024-01-02 15:04:05", 42)
	value, id := DecodeCompositeCursor(&encoded)
	if value != "2024-01-02 15:04:05" {
		t.Fatalf("unexpected cursor value %q", value)
	}
	if id != 42 {
		t.Fatalf("unexpected cursor id %d", id)
	}
}

func TestDecodeCompositeCursorTolerance(t *testing.T) {
	if v, id := DecodeCompositeCursor(nil); v != "" || id != 0 {
		t.Fatalf("nil cursor must decode to zero values, got %q %d", v, id)
	}
	empty := ""
	if v, id := DecodeCompositeCursor(&empty); v != "" || id != 0 {
		t.Fatalf("empty cursor must decode to zero values, got %q %d", v, id)
	}
	garbage := "%%%not-base64%%%"
	if v, id := DecodeCompositeCursor(&garbage); v != "" || id != 0 {
		t.Fatalf("garbage cursor must decode to zero values, got %q %d", v, id)
	}
	// well-formed base64 without the separator is also treated as no cursor
	noSep := EncodeCursor("plain")
	if v, id := DecodeCompositeCursor(&noSep); v != "" || id != 0 {
		t.Fatalf("cursor without separator must decode to zero values, got %q %d", v, id)
	}
}

func TestDecodeCursorInvalidBase64(t *testing.T) {
	bad := "%%%"
	if _, err := DecodeCursor(&bad); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if v, err := DecodeCursor(nil); err != nil || v != "" {
		t.Fatalf("nil cursor must decode cleanly, got %q %v", v, err)
	}
}
