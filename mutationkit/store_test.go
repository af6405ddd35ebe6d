package mutationkit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStoreBasicOperations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrEntityNotFound", err)
	}

	e := &TestEntity{EntityID: "user-1", Status: "active"}
	if err := store.Set(ctx, "user-1", e); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.(*TestEntity).Status != "active" {
		t.Errorf("Get() status = %q, want %q", got.(*TestEntity).Status, "active")
	}

	if err := store.Remove(ctx, "user-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrEntityNotFound", err)
	}

	// Removing an absent id is a no-op.
	if err := store.Remove(ctx, "user-1"); err != nil {
		t.Errorf("Remove(absent) error = %v, want nil", err)
	}
}

func TestMemoryStoreSnapshotIsIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := &TestEntity{EntityID: "user-1", Status: "active", Labels: map[string]string{"team": "secops"}}
	if err := store.Set(ctx, "user-1", original); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	snap, err := store.Snapshot(ctx, "user-1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	// Mutating the stored value must not leak into the snapshot.
	original.Status = "inactive"
	original.Labels["team"] = "changed"

	want := &TestEntity{EntityID: "user-1", Status: "active", Labels: map[string]string{"team": "secops"}}
	if diff := cmp.Diff(want, snap.(*TestEntity)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStorePreservesInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		if err := store.Set(ctx, id, &TestEntity{EntityID: id}); err != nil {
			t.Fatalf("Set(%q) error = %v", id, err)
		}
	}

	// Replacing an entity must not move it.
	if err := store.Set(ctx, "a", &TestEntity{EntityID: "a", Status: "updated"}); err != nil {
		t.Fatalf("Set(a) error = %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var gotIDs []string
	for _, e := range list {
		gotIDs = append(gotIDs, e.ID())
	}
	if diff := cmp.Diff(ids, gotIDs); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	changes := make(chan Change, 8)
	if err := store.Subscribe(func(c Change) { changes <- c }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := store.Set(ctx, "user-1", &TestEntity{EntityID: "user-1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	c := <-changes
	if c.Op != ChangeSet || c.EntityID != "user-1" || c.Entity == nil {
		t.Errorf("change = %+v, want set of user-1", c)
	}

	if err := store.Remove(ctx, "user-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	c = <-changes
	if c.Op != ChangeRemove || c.EntityID != "user-1" {
		t.Errorf("change = %+v, want remove of user-1", c)
	}
}

func TestMemoryStoreClose(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if err := store.Set(ctx, "x", &TestEntity{EntityID: "x"}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Set() after Close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Get(ctx, "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() after Close error = %v, want ErrStoreClosed", err)
	}
	if err := store.Subscribe(func(Change) {}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrStoreClosed", err)
	}
}
