package memstore

import (
	"context"
	"testing"
	"time"
)

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := New(2, time.Minute)

	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("expected miss on empty store")
	}
	buf := []byte("doc")
	if err := s.Set(ctx, "a", buf, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	buf[0] = 'X'

	got, ok, err := s.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if string(got) != "doc" {
		t.Fatalf("got %q want %q", got, "doc")
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(2, 0)
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if s.Len() != 2 {
		t.Fatalf("len=%d want 2", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
}
