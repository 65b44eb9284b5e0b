package blob

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	if _, err := p.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := p.Set(ctx, "history", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := p.Get(ctx, "history")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Fatalf("unexpected payload: %s", got)
	}

	// The returned slice must be a copy, not a live view.
	got[0] = 'X'
	again, err := p.Get(ctx, "history")
	if err != nil {
		t.Fatalf("get after mutation: %v", err)
	}
	if string(again) != `[{"id":"1"}]` {
		t.Fatalf("stored payload was aliased: %s", again)
	}

	if err := p.Del(ctx, "history"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := p.Del(ctx, "history"); err != nil {
		t.Fatalf("del of absent key should be a no-op: %v", err)
	}
	if _, err := p.Get(ctx, "history"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
