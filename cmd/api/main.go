package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/api/handlers"
	"github.com/guideline-agent/backend/internal/guidelines"
	"github.com/guideline-agent/backend/internal/literature"
	"github.com/guideline-agent/backend/internal/llm"
	"github.com/guideline-agent/backend/internal/metrics"
	"github.com/guideline-agent/backend/internal/middleware/ratelimit"
	"github.com/guideline-agent/backend/internal/middleware/security"
	"github.com/guideline-agent/backend/internal/middleware/validation"
	"github.com/guideline-agent/backend/internal/pipeline"
	"github.com/guideline-agent/backend/pkg/config"
	appLogger "github.com/guideline-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting guideline agent API server")

	metrics.Init()

	store := guidelines.NewStore(cfg.Guidelines.Dir, cfg.Guidelines.RoutePrefix)

	modelClient, err := llm.NewClient(
		cfg.Model.Host,
		cfg.Model.Name,
		time.Duration(cfg.Model.TimeoutSec)*time.Second,
	)
	if err != nil {
		appLogger.Fatal("Failed to create model client", zap.Error(err))
	}

	literatureClient := literature.NewClient(
		cfg.Literature.EutilsBaseURL,
		cfg.Literature.ArticleBaseURL,
		cfg.Literature.APIKey,
		time.Duration(cfg.Literature.TimeoutSec)*time.Second,
	)

	guidancePipeline := pipeline.New(store, modelClient, literatureClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		Logger:            appLogger.Log,
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Server.MaxQueryLength,
		Logger:         appLogger.Log,
	}))

	askHandler := handlers.NewAskHandler(guidancePipeline)
	guidelineHandler := handlers.NewGuidelineHandler(store)

	api := app.Group("/api/v1")

	api.Post("/ask", askHandler.HandleAsk)
	api.Get("/guidelines", guidelineHandler.ListGuidelines)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())
	app.Get(cfg.Guidelines.RoutePrefix+"/:file", guidelineHandler.ServeGuideline)
	app.Static("/", cfg.Web.Dir)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
