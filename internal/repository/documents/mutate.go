package documents

import (
	"context"
	"errors"
	"fmt"
)

// MaxMutateAttempts bounds the optimistic retry loop of Mutate.
const MaxMutateAttempts = 16

// Mutate performs a read-modify-write of the document at path. fn edits doc in
// place; exists is false when the document is absent and doc holds the zero
// value, and returning changed=false skips the write. Concurrent writers are
// detected through the document version; the losing writer re-reads and
// re-applies fn, so fn must be free of side effects besides doc.
func Mutate[T any](ctx context.Context, store Store, path string, fn func(doc *T, exists bool) (changed bool, err error)) (T, error) {
	var zero T

	for attempt := 0; attempt < MaxMutateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		var doc T
		var version int64
		exists := true

		snap, err := store.Get(ctx, path)
		switch {
		case errors.Is(err, ErrNotFound):
			exists = false
		case err != nil:
			return zero, err
		default:
			if err := snap.Decode(&doc); err != nil {
				return zero, err
			}
			version = snap.Version
		}

		changed, err := fn(&doc, exists)
		if err != nil {
			return zero, err
		}
		if !changed {
			return doc, nil
		}

		err = store.CompareAndSet(ctx, path, version, doc)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return zero, err
		}
		return doc, nil
	}

	return zero, fmt.Errorf("mutate %s: gave up after %d attempts: %w", path, MaxMutateAttempts, ErrConflict)
}
