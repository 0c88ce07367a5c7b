package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// GoalService manages profiles and goals.
type GoalService interface {
	Register(ctx context.Context, profile models.UserProfile) (models.UserProfile, error)
	Profile(ctx context.Context, userID string) (models.UserProfile, error)
	Goal(ctx context.Context, userID string) (models.GoalTarget, error)
	SetGoal(ctx context.Context, userID string, goal models.GoalTarget) (models.GoalTarget, error)
	AdjustGoal(ctx context.Context, userID, field string, delta float64) (models.GoalTarget, error)
}

// UsersHandler serves registration and goal endpoints.
type UsersHandler struct {
	goals  GoalService
	logger *zap.Logger
}

func NewUsersHandler(goals GoalService, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{goals: goals, logger: logger}
}

type registerRequest struct {
	UserID             string             `json:"userId" binding:"required"`
	DisplayName        string             `json:"displayName"`
	Phone              string             `json:"phone"`
	DietaryPreferences []string           `json:"dietaryPreferences"`
	Goals              *models.GoalTarget `json:"goals"`
}

type adjustRequest struct {
	Delta *float64 `json:"delta" binding:"required"`
}

// Register creates a profile.
func (h *UsersHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	profile := models.UserProfile{
		UserID:             req.UserID,
		DisplayName:        req.DisplayName,
		Phone:              req.Phone,
		DietaryPreferences: req.DietaryPreferences,
	}
	if req.Goals != nil {
		profile.Goals = *req.Goals
	}

	created, err := h.goals.Register(c.Request.Context(), profile)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetProfile returns a stored profile.
func (h *UsersHandler) GetProfile(c *gin.Context) {
	profile, err := h.goals.Profile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetGoal returns the daily target, the default one for unknown users.
func (h *UsersHandler) GetGoal(c *gin.Context) {
	goal, err := h.goals.Goal(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// PutGoal replaces the daily target.
func (h *UsersHandler) PutGoal(c *gin.Context) {
	var goal models.GoalTarget
	if err := c.ShouldBindJSON(&goal); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.goals.SetGoal(c.Request.Context(), c.Param("userId"), goal)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AdjustGoal moves a single goal field by delta.
func (h *UsersHandler) AdjustGoal(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "delta is required")
		return
	}

	updated, err := h.goals.AdjustGoal(c.Request.Context(), c.Param("userId"), c.Param("field"), *req.Delta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
