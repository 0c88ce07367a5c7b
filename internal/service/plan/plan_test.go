package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/repository/documents"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
	"github.com/Meedux/ai-meal/internal/service/plan"
)

type fixture struct {
	plans *plan.Service
	meals *nutrition.Service
	store *documents.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := documents.NewMemoryStore()
	meals := nutrition.NewService(store, nil, time.UTC, nil)
	return fixture{
		plans: plan.NewService(store, meals, nil),
		meals: meals,
		store: store,
	}
}

func newPlanned(t *testing.T, name string, macros models.MacroTotals) models.PlannedEntry {
	t.Helper()
	entry, err := models.NewPlannedEntry("recipe-1", name, macros, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new planned entry: %v", err)
	}
	return entry
}

func TestListEmptyPlan(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	p, err := f.plans.List(context.Background(), "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.UserID != "u1" || p.Date != "2024-03-01" || p.Entries == nil || len(p.Entries) != 0 {
		t.Fatalf("unexpected empty plan %+v", p)
	}
}

func TestAddAndRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.plans.Remove(ctx, "u1", "2024-03-01", "x"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for missing plan, got %v", err)
	}

	oats := newPlanned(t, "Oats", models.MacroTotals{Calories: 350, Protein: 12, Carbs: 60, Fat: 6})
	p, err := f.plans.Add(ctx, "u1", "2024-03-01", oats)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.plans.Add(ctx, "u1", "2024-03-01", oats); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	p, err = f.plans.List(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(p.Entries) != 1 || p.PlannedMacros() != oats.Macros {
		t.Fatalf("unexpected plan %+v", p)
	}

	p, err = f.plans.Remove(ctx, "u1", "2024-03-01", oats.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(p.Entries) != 0 {
		t.Fatalf("expected empty plan, got %+v", p)
	}
	if _, err := f.plans.Remove(ctx, "u1", "2024-03-01", oats.ID); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestPlanDoesNotAffectLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.plans.Add(ctx, "u1", "2024-03-01", newPlanned(t, "Soup", models.MacroTotals{Calories: 200})); err != nil {
		t.Fatalf("add: %v", err)
	}
	ledger, err := f.meals.GetDay(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if !ledger.Total.IsZero() || len(ledger.Meals) != 0 {
		t.Fatalf("planning must not log consumption, got %+v", ledger)
	}
}

func TestConsumeCopiesWithoutRemoving(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	bowl := newPlanned(t, "Rice bowl", models.MacroTotals{Calories: 600, Protein: 35, Carbs: 70, Fat: 18})
	if _, err := f.plans.Add(ctx, "u1", "2024-03-01", bowl); err != nil {
		t.Fatalf("add: %v", err)
	}

	ledger, err := f.plans.Consume(ctx, "u1", "2024-03-01", bowl.ID, "2024-03-02")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ledger.Date != "2024-03-02" || ledger.Total != bowl.Macros || len(ledger.Meals) != 1 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
	if ledger.Meals[0].ID == bowl.ID || ledger.Meals[0].MealReferenceID != "recipe-1" {
		t.Fatalf("consumed entry should carry a new id and the reference, got %+v", ledger.Meals[0])
	}

	p, err := f.plans.List(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := p.Find(bowl.ID); !ok {
		t.Fatalf("planned entry should remain after consumption")
	}

	defaulted, err := f.plans.Consume(ctx, "u1", "2024-03-01", bowl.ID, "")
	if err != nil {
		t.Fatalf("consume on planned date: %v", err)
	}
	if defaulted.Date != "2024-03-01" {
		t.Fatalf("expected planned date, got %s", defaulted.Date)
	}

	if _, err := f.plans.Consume(ctx, "u1", "2024-03-01", "missing", ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for unknown entry, got %v", err)
	}
}

func TestRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for _, date := range []string{"2024-02-28", "2024-03-01", "2024-03-05"} {
		if _, err := f.plans.Add(ctx, "u1", date, newPlanned(t, "Meal "+date, models.MacroTotals{Calories: 100})); err != nil {
			t.Fatalf("add %s: %v", date, err)
		}
	}
	emptied := newPlanned(t, "Gone", models.MacroTotals{Calories: 50})
	if _, err := f.plans.Add(ctx, "u1", "2024-03-02", emptied); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.plans.Remove(ctx, "u1", "2024-03-02", emptied.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	plans, err := f.plans.Range(ctx, "u1", "2024-02-28", "2024-03-04")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(plans) != 2 || plans[0].Date != "2024-02-28" || plans[1].Date != "2024-03-01" {
		t.Fatalf("unexpected plans %+v", plans)
	}

	if _, err := f.plans.Range(ctx, "u1", "2024-03-04", "2024-02-28"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
