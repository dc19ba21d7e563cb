package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/policybot/backend/internal/answer"
	"github.com/policybot/backend/internal/api/handlers"
	"github.com/policybot/backend/internal/llm"
	"github.com/policybot/backend/internal/metrics"
	"github.com/policybot/backend/internal/middleware/ratelimit"
	"github.com/policybot/backend/internal/middleware/security"
	"github.com/policybot/backend/internal/middleware/validation"
	"github.com/policybot/backend/internal/retrieval"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/internal/store"
	"github.com/policybot/backend/internal/training"
	"github.com/policybot/backend/internal/vector/milvus"
	"github.com/policybot/backend/pkg/config"
	appLogger "github.com/policybot/backend/pkg/logger"
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

	appLogger.Info("Starting company policy assistant API server")

	metrics.Init()

	records, err := store.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create record store", zap.Error(err))
	}
	defer records.Close()

	if err = records.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	sessions, err := session.NewStore(cfg.Redis, cfg.Chat.MaxHistory)
	if err != nil {
		appLogger.Fatal("Failed to create session store", zap.Error(err))
	}
	defer sessions.Close()

	chunks, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create chunk store client", zap.Error(err))
	}
	defer chunks.Close()

	if err = chunks.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	llmClient := llm.NewClient(cfg.LLM)

	retriever := retrieval.New(llmClient, chunks, cfg.RAG)
	composer := answer.NewComposer(llmClient, cfg.Confidence, cfg.Chat, cfg.Training.MinConfidence, cfg.LLM.Temperature)
	analyzer := training.NewAnalyzer(records, cfg.Training, cfg.Chat)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		Logger: appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(sessions, retriever, composer, records, cfg.Training.FeedbackCollectionEnabled)
	feedbackHandler := handlers.NewFeedbackHandler(sessions, records, cfg.Training)
	trainingHandler := handlers.NewTrainingHandler(analyzer, cfg.Training.SelfTrainingEnabled)
	sessionHandler := handlers.NewSessionHandler(sessions)
	healthHandler := handlers.NewHealthHandler(cfg.Training)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Post("/feedback", feedbackHandler.HandleFeedback)
	api.Get("/training/report", trainingHandler.GetReport)
	api.Get("/training/suggestions", trainingHandler.GetSuggestions)
	api.Get("/training/examples", trainingHandler.GetExamples)
	api.Delete("/session/:id", sessionHandler.ClearSession)
	api.Get("/health", healthHandler.GetHealth)
	api.Get("/metrics", metrics.MetricsHandler())

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
