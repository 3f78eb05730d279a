package botstate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreUnknownUserIsIdle(t *testing.T) {
	store := NewMemoryStore(0)

	entry, err := store.Get(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.State != StateIdle {
		t.Errorf("expected idle state, got %q", entry.State)
	}
	if entry.Label != "" {
		t.Errorf("expected empty label, got %q", entry.Label)
	}
}

func TestMemoryStoreSetGetClear(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if err := store.Set(ctx, "alice", StateTrain, "bob"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	entry, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.State != StateTrain || entry.Label != "bob" {
		t.Errorf("unexpected entry %+v", entry)
	}

	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	entry, _ = store.Get(ctx, "alice")
	if entry.State != StateIdle {
		t.Errorf("expected idle after clear, got %q", entry.State)
	}

	// Clearing again must be a no-op.
	if err := store.Clear(ctx, "alice"); err != nil {
		t.Errorf("repeated clear failed: %v", err)
	}
}

func TestMemoryStoreStatesAreIndependent(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	store.Set(ctx, "alice", StateTrain, "label-a")
	store.Set(ctx, "bob", StateNote, "label-b")

	alice, _ := store.Get(ctx, "alice")
	bob, _ := store.Get(ctx, "bob")
	if alice.State != StateTrain || alice.Label != "label-a" {
		t.Errorf("alice entry corrupted: %+v", alice)
	}
	if bob.State != StateNote || bob.Label != "label-b" {
		t.Errorf("bob entry corrupted: %+v", bob)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	store.Set(ctx, "alice", StateTrain, "bob")

	current = current.Add(29 * time.Minute)
	entry, _ := store.Get(ctx, "alice")
	if entry.State != StateTrain {
		t.Errorf("expected state to survive before TTL, got %q", entry.State)
	}

	current = current.Add(2 * time.Minute)
	entry, _ = store.Get(ctx, "alice")
	if entry.State != StateIdle {
		t.Errorf("expected state expired after TTL, got %q", entry.State)
	}
}
