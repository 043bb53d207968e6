package localstore

import (
	"context"
	"testing"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	value := map[string]any{"id": "res_1", "name": "notes.pdf"}
	if err := store.Write(ctx, "k", value); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var out map[string]any
	if !ReadJSON(ctx, store, "k", &out) {
		t.Fatal("expected key to exist")
	}
	if out["id"] != "res_1" || out["name"] != "notes.pdf" {
		t.Fatalf("unexpected value %v", out)
	}
}

func TestMemStoreAbsentKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if _, ok := store.Read(ctx, "missing"); ok {
		t.Fatal("expected absent key")
	}

	var out []string
	if ReadJSON(ctx, store, "missing", &out) {
		t.Fatal("expected ReadJSON to report absent")
	}
	if out != nil {
		t.Fatalf("expected out untouched got %v", out)
	}
}

func TestMemStoreCorruptedValueTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Write(ctx, "k", []string{"a"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	store.Corrupt("k")

	if _, ok := store.Read(ctx, "k"); ok {
		t.Fatal("expected corrupted value to read as absent")
	}
}

func TestMemStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Write(ctx, "k", 1); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := store.Read(ctx, "k"); ok {
		t.Fatal("expected removed key to be absent")
	}
}

func TestMemStoreTypeMismatchLeavesOutUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Write(ctx, "k", "just a string"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var out []int
	if ReadJSON(ctx, store, "k", &out) {
		t.Fatal("expected decode failure to report false")
	}
}
