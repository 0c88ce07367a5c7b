package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/repository/documents"
	"github.com/Meedux/ai-meal/pkg/clients/anthropic"
)

var (
	// ErrEstimatorDisabled is returned by Estimate when no estimator is configured.
	ErrEstimatorDisabled = errors.New("macro estimation is not configured")
	// ErrEstimateFailed wraps failures of the upstream estimator.
	ErrEstimateFailed = errors.New("macro estimation failed")
)

// Service resolves meal references to per-serving macros.
type Service struct {
	store     documents.Store
	estimator anthropic.Estimator
	logger    *zap.Logger
}

// NewService builds the resolver. estimator may be nil.
func NewService(store documents.Store, estimator anthropic.Estimator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, estimator: estimator, logger: logger}
}

// EstimatorEnabled reports whether free-text estimation is available.
func (s *Service) EstimatorEnabled() bool {
	return s.estimator != nil
}

// Resolve reads recipes/{recipeID}.
func (s *Service) Resolve(ctx context.Context, recipeID string) (models.Recipe, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" || strings.Contains(recipeID, "/") {
		return models.Recipe{}, models.Validationf("recipe id %q is invalid", recipeID)
	}

	snap, err := s.store.Get(ctx, documents.RecipePath(recipeID))
	if errors.Is(err, documents.ErrNotFound) {
		return models.Recipe{}, models.NotFoundf("recipe %s", recipeID)
	}
	if err != nil {
		return models.Recipe{}, models.Persistence("load recipe", err)
	}

	var recipe models.Recipe
	if err := snap.Decode(&recipe); err != nil {
		return models.Recipe{}, models.Persistence("decode recipe", err)
	}
	if recipe.ID == "" {
		recipe.ID = recipeID
	}
	return recipe, nil
}

// Save upserts a recipe so it can be referenced by meal entries.
func (s *Service) Save(ctx context.Context, recipe models.Recipe) (models.Recipe, error) {
	recipe.ID = strings.TrimSpace(recipe.ID)
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.ID == "" || strings.Contains(recipe.ID, "/") {
		return models.Recipe{}, models.Validationf("recipe id %q is invalid", recipe.ID)
	}
	if recipe.Name == "" {
		return models.Recipe{}, models.Validationf("recipe name must not be empty")
	}
	if recipe.Servings < 0 {
		return models.Recipe{}, models.Validationf("servings must not be negative")
	}
	if err := recipe.Macros.Validate(); err != nil {
		return models.Recipe{}, err
	}

	if err := s.store.Set(ctx, documents.RecipePath(recipe.ID), recipe); err != nil {
		return models.Recipe{}, models.Persistence("save recipe", err)
	}
	s.logger.Info("recipe saved", zap.String("recipe_id", recipe.ID))
	return recipe, nil
}

// Estimate asks the estimator for the macros of a free-text description. The
// result is not persisted.
func (s *Service) Estimate(ctx context.Context, description string) (models.Recipe, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Recipe{}, models.Validationf("description must not be empty")
	}
	if s.estimator == nil {
		return models.Recipe{}, ErrEstimatorDisabled
	}

	estimate, err := s.estimator.EstimateMacros(ctx, description)
	if err != nil {
		s.logger.Warn("macro estimation failed", zap.Error(err))
		return models.Recipe{}, fmt.Errorf("%w: %w", ErrEstimateFailed, err)
	}

	macros := models.MacroTotals{
		Calories: estimate.Calories,
		Protein:  estimate.Protein,
		Carbs:    estimate.Carbs,
		Fat:      estimate.Fat,
	}
	// Invalid model output is reported as an upstream failure.
	if err := macros.Validate(); err != nil {
		return models.Recipe{}, fmt.Errorf("%w: %v", ErrEstimateFailed, err)
	}

	name := estimate.Name
	if name == "" {
		name = description
	}
	return models.Recipe{Name: name, Macros: macros, Servings: 1}, nil
}
