package store

import (
	"context"
	"testing"
)

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "doc1", 3, []byte("state")); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.DocID != "doc1" || snap.Version != 3 || string(snap.Data) != "state" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestMemoryStore_SaveOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, "doc1", 1, []byte("old"))
	s.Save(ctx, "doc1", 2, []byte("new"))

	snap, err := s.Load(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 2 || string(snap.Data) != "new" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestMemoryStore_LoadNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Load(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadCopiesData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, "doc1", 1, []byte("state"))
	snap, _ := s.Load(ctx, "doc1")
	snap.Data[0] = 'X'

	again, _ := s.Load(ctx, "doc1")
	if string(again.Data) != "state" {
		t.Error("mutating a loaded snapshot must not affect the store")
	}
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, "a", 1, []byte("x"))
	s.Save(ctx, "b", 2, []byte("y"))

	snaps, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	for _, snap := range snaps {
		if snap.Data != nil {
			t.Error("List must not carry snapshot data")
		}
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, "doc1", 1, []byte("x"))
	if err := s.Delete(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "doc1"); err != ErrNotFound {
		t.Error("snapshot should be gone after Delete")
	}
	if err := s.Delete(ctx, "doc1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
