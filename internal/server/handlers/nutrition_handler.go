package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
)

const streamHeartbeat = 25 * time.Second

// MealService is the ledger API exposed over HTTP.
type MealService interface {
	AddMealToDay(ctx context.Context, userID, date string, entry models.MealEntry) (models.DailyLedger, error)
	RemoveMealFromDay(ctx context.Context, userID, date, entryID string) (models.DailyLedger, error)
	DayView(ctx context.Context, userID, date string) (nutrition.DayView, error)
	ComputeWeeklySeries(ctx context.Context, userID, endDate string, days int) (models.WeeklySeries, error)
	WatchDay(ctx context.Context, userID, date string, onChange func(models.DailyLedger)) (func(), error)
	Today() string
	Now() time.Time
}

// NutritionHandler serves daily ledgers, progress and the weekly series.
type NutritionHandler struct {
	meals   MealService
	recipes RecipeResolver
	logger  *zap.Logger
}

func NewNutritionHandler(meals MealService, recipes RecipeResolver, logger *zap.Logger) *NutritionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NutritionHandler{meals: meals, recipes: recipes, logger: logger}
}

type weeklyResponse struct {
	Series  models.WeeklySeries  `json:"series"`
	Summary models.WeeklySummary `json:"summary"`
}

// GetDay returns the ledger with progress and macro distribution.
func (h *NutritionHandler) GetDay(c *gin.Context) {
	view, err := h.meals.DayView(c.Request.Context(), c.Param("userId"), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddMeal records a consumed meal.
func (h *NutritionHandler) AddMeal(c *gin.Context) {
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

	ledger, err := h.meals.AddMealToDay(ctx, c.Param("userId"), c.Param("date"), entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ledger)
}

// RemoveMeal drops a meal entry from a ledger.
func (h *NutritionHandler) RemoveMeal(c *gin.Context) {
	ledger, err := h.meals.RemoveMealFromDay(c.Request.Context(), c.Param("userId"), c.Param("date"), c.Param("entryId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

// Weekly returns the series ending at ?end= (today by default) over ?days=.
func (h *NutritionHandler) Weekly(c *gin.Context) {
	end := c.DefaultQuery("end", h.meals.Today())
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(nutrition.DefaultSeriesDays)))
	if err != nil {
		badRequest(c, "days must be an integer")
		return
	}

	series, err := h.meals.ComputeWeeklySeries(c.Request.Context(), c.Param("userId"), end, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, weeklyResponse{Series: series, Summary: series.Summarize()})
}

// Stream pushes the day view as server-sent "ledger" events on every change.
func (h *NutritionHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID, date := c.Param("userId"), c.Param("date")

	initial, err := h.meals.DayView(ctx, userID, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	goal := initial.Goal

	updates := make(chan models.DailyLedger, 8)
	unsubscribe, err := h.meals.WatchDay(ctx, userID, date, func(ledger models.DailyLedger) {
		select {
		case updates <- ledger:
		default:
			h.logger.Warn("dropping ledger update for slow stream", zap.String("user_id", userID), zap.String("date", date))
		}
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("stream client connected", zap.String("user_id", userID), zap.String("date", date))

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("stream client disconnected", zap.String("user_id", userID), zap.String("date", date))
			return
		case ledger := <-updates:
			c.SSEvent("ledger", nutrition.BuildDayView(ledger, goal))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": h.meals.Now().UTC()})
			c.Writer.Flush()
		}
	}
}
