package middlewares

import (
	"errors"
	"testing"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
)

func TestGenerateLoaderResultsAlignsToRequestOrder(t *testing.T) {
	active := true
	rows := []models.Account{
		{ID: 9, Name: "Sales Revenue", IsActive: &active},
		{ID: 2, Name: "Cash", IsActive: &active},
	}

	results := generateLoaderResults(rows, []int{2, 9})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil || results[1].Error != nil {
		t.Fatalf("unexpected errors: %v %v", results[0].Error, results[1].Error)
	}
	if got := results[0].Data; got.ID != 2 || got.Name != "Cash" {
		t.Fatalf("result 0 mismatch: %+v", got)
	}
	if got := results[1].Data; got.ID != 9 || got.Name != "Sales Revenue" {
		t.Fatalf("result 1 mismatch: %+v", got)
	}
}

func TestGenerateLoaderResultsFillsDefaults(t *testing.T) {
	active := true
	rows := []models.Account{
		{ID: 2, Name: "Cash", IsActive: &active},
	}

	results := generateLoaderResults(rows, []int{1, 2})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// the missing id comes back as an inactive placeholder, not an error
	missing := results[0].Data
	if missing.ID != 1 {
		t.Fatalf("placeholder id mismatch: %+v", missing)
	}
	if missing.IsActive == nil || *missing.IsActive {
		t.Fatalf("placeholder must be inactive: %+v", missing)
	}

	if got := results[1].Data; got.Name != "Cash" {
		t.Fatalf("real row mismatch: %+v", got)
	}
}

func TestGenerateLoaderArrayResultsGroupsByReference(t *testing.T) {
	rows := []models.SaleLine{
		{ID: 1, SaleId: 5},
		{ID: 2, SaleId: 5},
		{ID: 3, SaleId: 9},
	}

	results := generateLoaderArrayResults(rows, []int{5, 7, 9})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if got := results[0].Data; len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("sale 5 lines mismatch: %+v", got)
	}
	if got := results[1].Data; len(got) != 0 {
		t.Fatalf("sale 7 must have no lines, got %+v", got)
	}
	if got := results[2].Data; len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("sale 9 lines mismatch: %+v", got)
	}
}

func TestHandleErrorRepeatsPerRequestedItem(t *testing.T) {
	boom := errors.New("db is down")
	results := handleError[*models.Party](3, boom)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Error != boom {
			t.Fatalf("result %d does not carry the error: %v", i, r.Error)
		}
	}
}
