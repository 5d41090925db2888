package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/material-question-service/internal/config"
	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/extraction"
	"github.com/SAP-F-2025/material-question-service/internal/handlers"
	"github.com/SAP-F-2025/material-question-service/internal/providers"
	"github.com/SAP-F-2025/material-question-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/material-question-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/material-question-service/internal/services"
	"github.com/SAP-F-2025/material-question-service/internal/utils"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
	"github.com/SAP-F-2025/material-question-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			slogLogger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoConfig := postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	}
	repoManager := postgres.NewRepositoryManager(repoConfig)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize validator
	validator := validator.New()

	// Initialize generation providers in configured order
	openaiProvider := providers.NewOpenAIProvider(providers.OpenAIConfig{
		APIKey:         cfg.Generation.OpenAIKey,
		Model:          cfg.Generation.OpenAIModel,
		MaxSourceChars: cfg.Generation.MaxSourceChars,
	}, validator, slogLogger)

	geminiProvider, err := providers.NewGeminiProvider(context.Background(), providers.GeminiConfig{
		APIKey:         cfg.Generation.GeminiKey,
		Model:          cfg.Generation.GeminiModel,
		MaxSourceChars: cfg.Generation.MaxSourceChars,
	}, validator, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini provider: %v", err)
	}

	providerList, err := providers.SelectOrdered(cfg.Generation.Providers, openaiProvider, geminiProvider)
	if err != nil {
		log.Fatalf("Failed to select generation providers: %v", err)
	}

	// Initialize event publisher
	publisher, err := newEventPublisher(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager, services.ServiceDependencies{
		Extractor: extraction.NewFileExtractor(cfg.StorageRoot, slogLogger),
		Providers: providerList,
		Publisher: publisher,
	}, slogLogger, validator, cfg.Generation)
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	authMiddleware := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, repoManager.GetRepository().User(), logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, authMiddleware, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Generation may legitimately run for the whole AI budget
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Generation.TotalTimeout + 30*time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Closes the publisher, provider clients, database and Redis
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	logger.Info("Server exited")
}

// newEventPublisher publishes to Kafka when brokers are configured and to an
// in-process channel otherwise.
func newEventPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	topic := cfg.Kafka.TopicPrefix + ".events"
	if cfg.Kafka.Enabled() {
		publisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, topic, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	}
	logger.Info("Kafka not configured, publishing events in process", "topic", topic)
	return events.NewWatermillEventPublisher(events.NewInMemoryPubSub(logger), topic, logger), nil
}
