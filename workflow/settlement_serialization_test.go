package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the guarantees
// the settlement entrypoints rely on:
// - per-business serialization (AcquireBusinessSettleLock) prevents two
//   settlement batches for one business from interleaving
// - state guards make re-submitting a batch safe: each sale reaches done once
//
// Full DB integration coverage lives in models/settlement_regression_test.go.

type fakeSettler struct {
	muByBiz map[string]*sync.Mutex
	mu      sync.Mutex
	state   map[int]string
	done    int
	active  map[string]int
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{
		muByBiz: map[string]*sync.Mutex{},
		state:   map[int]string{},
		active:  map[string]int{},
	}
}

func (s *fakeSettler) settle(t *testing.T, businessId string, saleIds []int) {
	// Serialize per business (AcquireBusinessSettleLock).
	s.mu.Lock()
	bm := s.muByBiz[businessId]
	if bm == nil {
		bm = &sync.Mutex{}
		s.muByBiz[businessId] = bm
	}
	s.mu.Unlock()

	bm.Lock()
	defer bm.Unlock()

	s.mu.Lock()
	s.active[businessId]++
	if s.active[businessId] != 1 {
		s.mu.Unlock()
		t.Errorf("business %s settled by %d batches at once", businessId, s.active[businessId])
		return
	}
	s.mu.Unlock()

	for _, id := range saleIds {
		// State guard (AdvanceAndSettleTx advances draft sales only).
		s.mu.Lock()
		if s.state[id] != "done" {
			s.state[id] = "done"
			s.done++
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.active[businessId]--
	s.mu.Unlock()
}

func TestSettleDuplicateBatchTransitionsOnce(t *testing.T) {
	s := newFakeSettler()
	batch := []int{11, 12, 13}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.settle(t, "biz-1", batch)
		}()
	}
	wg.Wait()

	if s.done != len(batch) {
		t.Fatalf("expected %d done transitions, got %d", len(batch), s.done)
	}
	for _, id := range batch {
		if s.state[id] != "done" {
			t.Fatalf("sale %d not done", id)
		}
	}
}

func TestSettleSerializedPerBusinessOnly(t *testing.T) {
	for run := 0; run < 100; run++ {
		s := newFakeSettler()
		var wg sync.WaitGroup

		// two businesses settling concurrently, each with duplicate batches
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					s.settle(t, "biz-1", []int{1, 2})
				} else {
					s.settle(t, "biz-2", []int{3})
				}
			}(i)
		}
		wg.Wait()

		if s.done != 3 {
			t.Fatalf("run=%d expected 3 done transitions across both businesses, got %d", run, s.done)
		}
	}
}
