package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// RecipeResolver turns a meal reference or description into macros.
type RecipeResolver interface {
	Resolve(ctx context.Context, recipeID string) (models.Recipe, error)
	Estimate(ctx context.Context, description string) (models.Recipe, error)
}

// mealRequest is the body of the endpoints that add a meal to a ledger or a
// plan. Exactly one of macros, mealReferenceId or description drives the
// macros. A client supplied id makes retries idempotent.
type mealRequest struct {
	ID              string              `json:"id"`
	MealReferenceID string              `json:"mealReferenceId"`
	DisplayName     string              `json:"displayName"`
	Macros          *models.MacroTotals `json:"macros"`
	Servings        *float64            `json:"servings"`
	Description     string              `json:"description"`
}

func (r mealRequest) toEntry(ctx context.Context, resolver RecipeResolver, now time.Time) (models.MealEntry, error) {
	servings := 1.0
	if r.Servings != nil {
		servings = *r.Servings
		if servings <= 0 {
			return models.MealEntry{}, models.Validationf("servings must be positive")
		}
	}

	name := strings.TrimSpace(r.DisplayName)
	reference := strings.TrimSpace(r.MealReferenceID)
	var macros models.MacroTotals

	switch {
	case r.Macros != nil:
		macros = *r.Macros
	case reference != "":
		recipe, err := resolver.Resolve(ctx, reference)
		if err != nil {
			return models.MealEntry{}, err
		}
		macros = recipe.Macros
		if name == "" {
			name = recipe.Name
		}
	case strings.TrimSpace(r.Description) != "":
		recipe, err := resolver.Estimate(ctx, r.Description)
		if err != nil {
			return models.MealEntry{}, err
		}
		macros = recipe.Macros
		if name == "" {
			name = recipe.Name
		}
	default:
		return models.MealEntry{}, models.Validationf("one of macros, mealReferenceId or description is required")
	}

	scaled, err := macros.ScaleChecked(servings)
	if err != nil {
		return models.MealEntry{}, err
	}
	entry, err := models.NewMealEntry(reference, name, scaled, now)
	if err != nil {
		return models.MealEntry{}, err
	}
	if id := strings.TrimSpace(r.ID); id != "" {
		entry.ID = id
	}
	return entry, nil
}
