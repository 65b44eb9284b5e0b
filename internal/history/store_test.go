package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/blob"
	"github.com/T10nnyy/sentiment-AI/internal/models"
)

func result(label string, score float64) models.PredictionResult {
	return models.PredictionResult{Label: label, Score: score}
}

func TestRecordEvictsBeyondCap(t *testing.T) {
	store := NewStore(nil, blob.NewMemoryProvider(), "", 100)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		store.Record(ctx, fmt.Sprintf("text %03d", i), result("POSITIVE", 0.5))
	}

	entries := store.List(Filter{})
	if len(entries) != 100 {
		t.Fatalf("expected 100 entries after cap eviction, got %d", len(entries))
	}
	// Newest first: the last inserted text leads, and the oldest surviving
	// entry is number 50.
	if entries[0].Text != "text 149" {
		t.Fatalf("expected newest entry first, got %q", entries[0].Text)
	}
	if entries[99].Text != "text 050" {
		t.Fatalf("expected entry 50 as oldest survivor, got %q", entries[99].Text)
	}
}

func TestRecordGeneratesUniqueIDs(t *testing.T) {
	store := NewStore(nil, blob.NewMemoryProvider(), "", 100)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		entry := store.Record(ctx, "same text", result("POSITIVE", 0.5))
		if seen[entry.ID] {
			t.Fatalf("duplicate id under rapid inserts: %s", entry.ID)
		}
		seen[entry.ID] = true
	}
}

func TestRemoveAndClearAreIdempotent(t *testing.T) {
	store := NewStore(nil, blob.NewMemoryProvider(), "", 10)
	ctx := context.Background()

	entry := store.Record(ctx, "keep me honest", result("NEGATIVE", 0.6))

	store.Remove(ctx, "no-such-id")
	if store.Len() != 1 {
		t.Fatalf("removing an absent id must not change state, len=%d", store.Len())
	}

	store.Remove(ctx, entry.ID)
	if store.Len() != 0 {
		t.Fatalf("expected empty store, len=%d", store.Len())
	}

	store.Clear(ctx)
	store.Clear(ctx)
	if store.Len() != 0 {
		t.Fatalf("clear on empty store must stay empty, len=%d", store.Len())
	}
}

func TestListFilterAndSort(t *testing.T) {
	store := NewStore(nil, blob.NewMemoryProvider(), "", 10)
	ctx := context.Background()

	store.Record(ctx, "Great phone", result("POSITIVE", 0.9))
	time.Sleep(2 * time.Millisecond)
	store.Record(ctx, "awful battery", result("NEGATIVE", 0.95))
	time.Sleep(2 * time.Millisecond)
	store.Record(ctx, "great screen", result("POSITIVE", 0.7))

	byQuery := store.List(Filter{Query: "GREAT"})
	if len(byQuery) != 2 {
		t.Fatalf("case-insensitive substring match failed: %d", len(byQuery))
	}

	byLabel := store.List(Filter{Label: "NEGATIVE"})
	if len(byLabel) != 1 || byLabel[0].Text != "awful battery" {
		t.Fatalf("label filter failed: %+v", byLabel)
	}

	oldest := store.List(Filter{Sort: SortOldestFirst})
	if oldest[0].Text != "Great phone" {
		t.Fatalf("oldest-first sort failed: %q", oldest[0].Text)
	}

	confident := store.List(Filter{Sort: SortConfidenceDesc})
	if confident[0].Result.Score != 0.95 {
		t.Fatalf("confidence sort failed: %+v", confident[0])
	}

	lexical := store.List(Filter{Sort: SortTextAsc})
	if lexical[0].Text != "Great phone" || lexical[2].Text != "great screen" {
		t.Fatalf("text sort failed: %+v", lexical)
	}
}

func TestListReturnsDetachedSnapshot(t *testing.T) {
	store := NewStore(nil, blob.NewMemoryProvider(), "", 10)
	ctx := context.Background()

	store.Record(ctx, "first", result("POSITIVE", 0.9))
	snapshot := store.List(Filter{})
	store.Record(ctx, "second", result("POSITIVE", 0.9))

	if len(snapshot) != 1 {
		t.Fatalf("snapshot must not be a live view, len=%d", len(snapshot))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	blobs := blob.NewMemoryProvider()
	ctx := context.Background()

	store := NewStore(nil, blobs, "test.history", 10)
	store.Record(ctx, "persist me", result("POSITIVE", 0.8))

	reloaded := NewStore(nil, blobs, "test.history", 10)
	entries := reloaded.List(Filter{})
	if len(entries) != 1 || entries[0].Text != "persist me" {
		t.Fatalf("expected persisted entry after reload, got %+v", entries)
	}
}

func TestCorruptBlobFallsBackToEmpty(t *testing.T) {
	blobs := blob.NewMemoryProvider()
	ctx := context.Background()
	if err := blobs.Set(ctx, "test.history", []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}

	store := NewStore(nil, blobs, "test.history", 10)
	if store.Len() != 0 {
		t.Fatalf("corrupt blob must degrade to empty history, len=%d", store.Len())
	}

	// The store must stay usable after the failed load.
	store.Record(ctx, "fresh start", result("POSITIVE", 0.9))
	if store.Len() != 1 {
		t.Fatalf("store unusable after corrupt load, len=%d", store.Len())
	}
}
