package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/server/handlers"
)

// Handlers groups the HTTP handlers mounted by New. Webhook may be nil when
// the chat channel is not configured.
type Handlers struct {
	Nutrition *handlers.NutritionHandler
	Users     *handlers.UsersHandler
	Plans     *handlers.PlanHandler
	Recipes   *handlers.RecipesHandler
	Webhook   *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/users", h.Users.Register)
	users := r.Group("/users/:userId")
	{
		users.GET("", h.Users.GetProfile)
		users.GET("/goals", h.Users.GetGoal)
		users.PUT("/goals", h.Users.PutGoal)
		users.PATCH("/goals/:field", h.Users.AdjustGoal)

		users.GET("/days/:date", h.Nutrition.GetDay)
		users.POST("/days/:date/meals", h.Nutrition.AddMeal)
		users.DELETE("/days/:date/meals/:entryId", h.Nutrition.RemoveMeal)
		users.GET("/days/:date/stream", h.Nutrition.Stream)
		users.GET("/weekly", h.Nutrition.Weekly)

		users.GET("/plan", h.Plans.Range)
		users.GET("/plan/:date", h.Plans.List)
		users.POST("/plan/:date", h.Plans.Add)
		users.DELETE("/plan/:date/:entryId", h.Plans.Remove)
		users.POST("/plan/:date/:entryId/consume", h.Plans.Consume)
	}

	r.GET("/recipes/:recipeId", h.Recipes.Get)
	r.PUT("/recipes/:recipeId", h.Recipes.Put)
	r.POST("/estimate", h.Recipes.Estimate)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/messages", h.Webhook.SendMessage)
	}

	logger.Info("router initialized", zap.Bool("webhook", h.Webhook != nil))
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
