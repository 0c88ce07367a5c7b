package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// defaultPlanWindow is the number of days returned by the plan range endpoint
// when ?to= is omitted.
const defaultPlanWindow = 7

// PlanService is the meal plan API exposed over HTTP.
type PlanService interface {
	List(ctx context.Context, userID, date string) (models.MealPlan, error)
	Add(ctx context.Context, userID, date string, entry models.PlannedEntry) (models.MealPlan, error)
	Remove(ctx context.Context, userID, date, entryID string) (models.MealPlan, error)
	Consume(ctx context.Context, userID, date, entryID, consumeDate string) (models.DailyLedger, error)
	Range(ctx context.Context, userID, from, to string) ([]models.MealPlan, error)
}

// PlanHandler serves the meal plan endpoints.
type PlanHandler struct {
	plans   PlanService
	meals   MealService
	recipes RecipeResolver
	logger  *zap.Logger
}

func NewPlanHandler(plans PlanService, meals MealService, recipes RecipeResolver, logger *zap.Logger) *PlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanHandler{plans: plans, meals: meals, recipes: recipes, logger: logger}
}

type consumeRequest struct {
	Date string `json:"date"`
}

// List returns the plan of one day.
func (h *PlanHandler) List(c *gin.Context) {
	plan, err := h.plans.List(c.Request.Context(), c.Param("userId"), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Add plans a meal.
func (h *PlanHandler) Add(c *gin.Context) {
	var req mealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	entry, err := req.toEntry(ctx, h.recipes, h.meals.Now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	plan, err := h.plans.Add(ctx, c.Param("userId"), c.Param("date"), models.PlannedEntry(entry))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// Remove drops a planned meal.
func (h *PlanHandler) Remove(c *gin.Context) {
	plan, err := h.plans.Remove(c.Request.Context(), c.Param("userId"), c.Param("date"), c.Param("entryId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Consume copies a planned meal into a ledger. The body is optional.
func (h *PlanHandler) Consume(c *gin.Context) {
	var req consumeRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "invalid request body")
			return
		}
	}

	ledger, err := h.plans.Consume(c.Request.Context(), c.Param("userId"), c.Param("date"), c.Param("entryId"), req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ledger)
}

// Range returns the plans between ?from= (today by default) and ?to= (a week
// later by default).
func (h *PlanHandler) Range(c *gin.Context) {
	from := c.DefaultQuery("from", h.meals.Today())
	to := c.Query("to")
	if to == "" {
		start, err := models.ParseDate(from)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		to = models.FormatDate(start.AddDate(0, 0, defaultPlanWindow-1))
	}

	plans, err := h.plans.Range(c.Request.Context(), c.Param("userId"), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "plans": plans})
}
