// Package documents defines the hierarchical document store the nutrition core
// persists through, plus an in-memory implementation.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict indicates an optimistic write lost against a concurrent writer
	// or a create found an existing document.
	ErrConflict = errors.New("document version conflict")

	// ErrInvalidPath indicates a path that does not address a document.
	ErrInvalidPath = errors.New("invalid document path")

	// ErrNotNumeric indicates UpdateField hit a field that is not a number.
	ErrNotNumeric = errors.New("field is not numeric")
)

// Store is the persistence boundary: document reads and writes addressed by
// slash separated paths such as users/{userId}/dailyMeals/{date}.
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, value any) error
	CompareAndSet(ctx context.Context, path string, expectedVersion int64, value any) error
	UpdateField(ctx context.Context, path, field string, delta float64) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection, fromKey, toKey string) ([]Snapshot, error)
	Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error)
}

// Snapshot is one observed version of a document.
type Snapshot struct {
	Path    string
	Key     string
	Version int64
	Exists  bool
	Data    bson.Raw
}

// Decode unmarshals the document body into out.
func (s Snapshot) Decode(out any) error {
	if !s.Exists {
		return ErrNotFound
	}
	if err := bson.Unmarshal(s.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return nil
}

// Split separates a document path into its collection path and document key.
func Split(path string) (collection, key string, err error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, s := range segments {
		if s == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-1], nil
}

// UserPath addresses users/{userId}.
func UserPath(userID string) string {
	return "users/" + userID
}

// LedgerCollection addresses users/{userId}/dailyMeals.
func LedgerCollection(userID string) string {
	return UserPath(userID) + "/dailyMeals"
}

// LedgerPath addresses users/{userId}/dailyMeals/{date}.
func LedgerPath(userID, date string) string {
	return LedgerCollection(userID) + "/" + date
}

// PlanCollection addresses users/{userId}/mealPlan.
func PlanCollection(userID string) string {
	return UserPath(userID) + "/mealPlan"
}

// PlanPath addresses users/{userId}/mealPlan/{date}.
func PlanPath(userID, date string) string {
	return PlanCollection(userID) + "/" + date
}

// RecipePath addresses recipes/{recipeId}.
func RecipePath(recipeID string) string {
	return "recipes/" + recipeID
}

// PhonePath addresses phones/{waId}.
func PhonePath(phone string) string {
	return "phones/" + phone
}
