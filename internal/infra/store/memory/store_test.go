package memory_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"quickswap/internal/app/syncer"
	memorystore "quickswap/internal/infra/store/memory"
)

func mustInsert(t *testing.T, s *memorystore.Store, table string, rows ...map[string]any) {
	t.Helper()
	raws := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		raw, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal row: %v", err)
		}
		raws = append(raws, raw)
	}
	if err := s.Insert(context.Background(), table, raws...); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

// Rows handed out by Select are snapshots: a later Update must not show
// through them.
func TestSelectSnapshotsUnaffectedByUpdate(t *testing.T) {
	ctx := context.Background()
	s := memorystore.NewStore()
	mustInsert(t, s, "listings", map[string]any{"id": "l1", "status": "ACTIVE", "created_at": 1})

	before, err := s.Select(ctx, "listings", nil, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Update(ctx, "listings", map[string]any{"status": "SOLD"}, syncer.Filter{"id": "l1"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var snap struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(before[0], &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Status != "ACTIVE" {
		t.Fatalf("snapshot status = %s, want ACTIVE", snap.Status)
	}

	after, err := s.SelectOne(ctx, "listings", "l1")
	if err != nil {
		t.Fatalf("select one: %v", err)
	}
	if err := json.Unmarshal(after, &snap); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if snap.Status != "SOLD" {
		t.Fatalf("stored status = %s, want SOLD", snap.Status)
	}
}

// Concurrent readers and writers on the same row must not interfere; run
// with -race this covers the handler-facing access pattern.
func TestConcurrentSelectAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := memorystore.NewStore()
	mustInsert(t, s, "listings", map[string]any{"id": "l1", "status": "ACTIVE", "created_at": 1})

	const iterations = 200
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			rows, err := s.Select(ctx, "listings", nil, &syncer.OrderBy{Column: "created_at", Descending: true})
			if err != nil {
				t.Errorf("select: %v", err)
				return
			}
			var r struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(rows[0], &r); err != nil {
				t.Errorf("decode row: %v", err)
				return
			}
			if r.Status != "ACTIVE" && r.Status != "SOLD" {
				t.Errorf("torn row status = %q", r.Status)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			status := "ACTIVE"
			if i%2 == 1 {
				status = "SOLD"
			}
			if err := s.Update(ctx, "listings", map[string]any{"status": status}, syncer.Filter{"id": "l1"}); err != nil {
				t.Errorf("update: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}
