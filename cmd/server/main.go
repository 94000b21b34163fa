package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbridge-backend/internal/api"
	"chatbridge-backend/internal/cache"
	"chatbridge-backend/internal/config"
	"chatbridge-backend/internal/handlers"
	"chatbridge-backend/internal/llm"
	"chatbridge-backend/internal/services"
	"chatbridge-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	redisv9 "github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting ChatBridge Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Cache, Model Client, Service, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	if err := pgStore.InitSchema(dbCtx); err != nil {
		log.Fatalf("FATAL: Failed to initialize database schema: %v", err)
	}
	log.Println("Postgres store initialized.")

	var historyCache *cache.HistoryCache
	if cfg.RedisURL != "" {
		opts, err := redisv9.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("FATAL: Invalid REDIS_URL: %v", err)
		}
		redisClient := redisv9.NewClient(opts)
		if err := redisClient.Ping(dbCtx).Err(); err != nil {
			log.Printf("WARN: Failed to connect to Redis: %v. Continuing without history caching.", err)
		} else {
			historyCache = cache.NewHistoryCache(redisClient, 60*time.Second)
			log.Println("Redis history cache initialized.")
		}
	}

	var llmClient llm.Client
	switch cfg.OpenAIAPIStyle {
	case config.APIStyleResponses:
		llmClient, err = llm.NewResponsesClient(llm.ResponsesConfig{
			BaseURL:         cfg.OpenAIBaseURL,
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.OpenAIModel,
			MaxOutputTokens: cfg.OpenAIMaxOutputTokens,
		})
	default:
		llmClient, err = llm.NewCompletionsClient(llm.CompletionsConfig{
			BaseURL:         cfg.OpenAIBaseURL,
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.OpenAIModel,
			FallbackModel:   cfg.OpenAIFallbackModel,
			Temperature:     cfg.OpenAITemperature,
			MaxOutputTokens: cfg.OpenAIMaxOutputTokens,
		})
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to create model client: %v", err)
	}
	log.Printf("Model client initialized (style=%s, model=%s).", cfg.OpenAIAPIStyle, cfg.OpenAIModel)

	chatService := services.NewChatService(pgStore, llmClient, historyCache)
	log.Println("ChatService initialized.")

	chatHandler := handlers.NewChatHandlers(chatService)
	log.Println("ChatHandler initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		ChatHandler: chatHandler,
		Config:      cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // outbound model calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
