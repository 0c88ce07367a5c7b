package documents_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Meedux/ai-meal/internal/repository/documents"
)

func TestMutateCreatesAndSkipsUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := documents.NewMemoryStore()

	doc, err := documents.Mutate(ctx, store, "users/u1", func(doc *counterDoc, exists bool) (bool, error) {
		if exists {
			t.Fatalf("document should not exist yet")
		}
		doc.Name = "ana"
		doc.Count = 1
		return true, nil
	})
	if err != nil {
		t.Fatalf("mutate create: %v", err)
	}
	if doc.Count != 1 {
		t.Fatalf("unexpected doc %+v", doc)
	}

	if _, err := documents.Mutate(ctx, store, "users/u1", func(doc *counterDoc, exists bool) (bool, error) {
		return false, nil
	}); err != nil {
		t.Fatalf("mutate noop: %v", err)
	}
	snap, err := store.Get(ctx, "users/u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Version != 1 {
		t.Fatalf("noop mutate must not write, version %d", snap.Version)
	}
}

func TestMutatePropagatesCallbackAndStoreErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := documents.NewMemoryStore()

	boom := errors.New("boom")
	if _, err := documents.Mutate(ctx, store, "users/u1", func(doc *counterDoc, exists bool) (bool, error) {
		return false, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	down := errors.New("store down")
	store.FailNext("get", down)
	if _, err := documents.Mutate(ctx, store, "users/u1", func(doc *counterDoc, exists bool) (bool, error) {
		return true, nil
	}); !errors.Is(err, down) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestMutateConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := documents.NewMemoryStore()

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := documents.Mutate(ctx, store, "users/u1", func(doc *counterDoc, exists bool) (bool, error) {
				doc.Count++
				return true, nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}

	snap, err := store.Get(ctx, "users/u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var doc counterDoc
	if err := snap.Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Count != writers {
		t.Fatalf("expected count %d, got %v", writers, doc.Count)
	}
}
