package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(2)

	var mu sync.Mutex
	var seen []string
	fn := func(ctx context.Context, id string) error {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		if id == "bad" {
			return errors.New("boom")
		}
		return nil
	}

	results := processor.Process(context.Background(), []string{"a", "b", "bad", "a", ""}, fn)

	if len(results) != 3 {
		t.Fatalf("expected 3 results (duplicates and empty ids dropped), got %d", len(results))
	}

	sort.Strings(seen)
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "bad" {
		t.Errorf("unexpected ids processed: %v", seen)
	}

	for _, r := range results {
		if r.Key == "bad" && r.Error == nil {
			t.Error("expected error for bad id")
		}
		if r.Key != "bad" && r.Error != nil {
			t.Errorf("unexpected error for %s: %v", r.Key, r.Error)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(4)
	results := processor.Process(context.Background(), nil, func(context.Context, string) error { return nil })
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	results := processor.Process(ctx, ids, func(ctx context.Context, id string) error {
		select {
		case <-time.After(20 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if len(results) != len(ids) {
		t.Fatalf("expected a result for every id, got %d", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected some ids to fail after cancellation")
	}
}
