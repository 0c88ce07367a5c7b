package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// RecipeService is the recipe API exposed over HTTP.
type RecipeService interface {
	RecipeResolver
	Save(ctx context.Context, recipe models.Recipe) (models.Recipe, error)
}

// RecipesHandler serves recipe lookups and macro estimation.
type RecipesHandler struct {
	recipes RecipeService
	logger  *zap.Logger
}

func NewRecipesHandler(recipes RecipeService, logger *zap.Logger) *RecipesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipesHandler{recipes: recipes, logger: logger}
}

type estimateRequest struct {
	Description string `json:"description" binding:"required"`
}

// Get returns a recipe.
func (h *RecipesHandler) Get(c *gin.Context) {
	recipe, err := h.recipes.Resolve(c.Request.Context(), c.Param("recipeId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Put upserts a recipe under the id of the path.
func (h *RecipesHandler) Put(c *gin.Context) {
	var recipe models.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := c.Param("recipeId")
	if recipe.ID != "" && strings.TrimSpace(recipe.ID) != id {
		badRequest(c, "recipe id does not match the path")
		return
	}
	recipe.ID = id

	saved, err := h.recipes.Save(c.Request.Context(), recipe)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Estimate returns the estimated macros of a description without logging it.
func (h *RecipesHandler) Estimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "description is required")
		return
	}

	recipe, err := h.recipes.Estimate(c.Request.Context(), req.Description)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
