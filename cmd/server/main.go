package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/repository/documents"
	"github.com/Meedux/ai-meal/internal/repository/mongodb"
	"github.com/Meedux/ai-meal/internal/repository/sheets"
	"github.com/Meedux/ai-meal/internal/scheduler"
	"github.com/Meedux/ai-meal/internal/server/handlers"
	"github.com/Meedux/ai-meal/internal/server/router"
	commandsvc "github.com/Meedux/ai-meal/internal/service/commands"
	goalsvc "github.com/Meedux/ai-meal/internal/service/goals"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
	plansvc "github.com/Meedux/ai-meal/internal/service/plan"
	recipesvc "github.com/Meedux/ai-meal/internal/service/recipes"
	reportingsvc "github.com/Meedux/ai-meal/internal/service/reporting"
	whatsappsvc "github.com/Meedux/ai-meal/internal/service/whatsapp"
	"github.com/Meedux/ai-meal/pkg/clients/anthropic"
	whatsappclient "github.com/Meedux/ai-meal/pkg/clients/whatsapp"
	"github.com/Meedux/ai-meal/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	gin.SetMode(gin.ReleaseMode)

	store, closeStore := openStore(cfg.Store, baseLogger)
	defer closeStore()

	loc := cfg.Reporting.Location()

	goalService := goalsvc.NewService(store, cfg.Goals, baseLogger.Named("svc.goals"))
	mealService := nutrition.NewService(store, goalService, loc, baseLogger.Named("svc.nutrition"))
	planService := plansvc.NewService(store, mealService, baseLogger.Named("svc.plan"))

	var estimator anthropic.Estimator
	if cfg.AI.AnthropicKey != "" {
		estimator = anthropic.NewClient(anthropic.Config{APIKey: cfg.AI.AnthropicKey, Model: cfg.AI.AnthropicModel})
		baseLogger.Info("anthropic macro estimation enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, macro estimation disabled")
	}
	recipeService := recipesvc.NewService(store, estimator, baseLogger.Named("svc.recipes"))

	var sheet sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheet = repo
	}
	reportingService := reportingsvc.NewService(mealService, sheet, baseLogger.Named("svc.reporting"))

	routes := router.Handlers{
		Nutrition: handlers.NewNutritionHandler(mealService, recipeService, baseLogger.Named("handlers.nutrition")),
		Users:     handlers.NewUsersHandler(goalService, baseLogger.Named("handlers.users")),
		Plans:     handlers.NewPlanHandler(planService, mealService, recipeService, baseLogger.Named("handlers.plan")),
		Recipes:   handlers.NewRecipesHandler(recipeService, baseLogger.Named("handlers.recipes")),
	}

	var messenger scheduler.Messenger
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(mealService, goalService, reportingService, recipeService, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, goalService, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		messenger = messagingSvc
	} else {
		baseLogger.Warn("whatsapp token missing, chat channel disabled")
	}

	engine := router.New(routes, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, goalService, reportingService, messenger, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// No write timeout: ledger streams stay open.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg config.StoreConfig, baseLogger *zap.Logger) (documents.Store, func()) {
	if cfg.Driver == config.StoreMemory {
		baseLogger.Warn("using in-memory store, data is lost on restart")
		return documents.NewMemoryStore(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.URI, cfg.DBName, cfg.Collection, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	return mongoRepo, func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
}
