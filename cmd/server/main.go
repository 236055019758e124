package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"golang.org/x/sync/errgroup"

	"dpmeschat/internal/assemble"
	"dpmeschat/internal/auth"
	"dpmeschat/internal/chat"
	"dpmeschat/internal/config"
	"dpmeschat/internal/gateway"
	"dpmeschat/internal/handler"
	"dpmeschat/internal/history"
	"dpmeschat/internal/intent"
	"dpmeschat/internal/llm"
	"dpmeschat/internal/middleware"
	"dpmeschat/internal/prompt"
	"dpmeschat/internal/queue"
	"dpmeschat/internal/relay"
	"dpmeschat/internal/repository/postgres"
	"dpmeschat/internal/retrieval"
	"dpmeschat/internal/transport/ws"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	sessionRepo := postgres.NewSessionRepository(repoConfig)
	turnRepo := postgres.NewTurnRepository(repoConfig)

	// LLM provider (OpenAI-compatible vLLM endpoint)
	provider := llm.NewProvider(llm.Options{
		BaseURL:        cfg.LLMBaseURL,
		APIKey:         cfg.LLMAPIKey,
		Model:          cfg.LLMModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}, logger)

	// Semantic retriever
	weaviateClient, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	})
	if err != nil {
		log.Fatalf("Failed to create weaviate client: %v", err)
	}
	if err := retrieval.EnsureClass(ctx, weaviateClient, cfg.WeaviateClass, logger); err != nil {
		log.Fatalf("Failed to ensure weaviate class: %v", err)
	}
	retriever := retrieval.NewWeaviateRetriever(weaviateClient, provider, cfg.WeaviateClass, logger)

	// Statistics gateways and per-intent context assembly
	statsGateway := gateway.NewClient(cfg.TimeSeriesURL, cfg.DPMESURL, logger)
	assembler := assemble.NewAssembler(statsGateway, logger)

	// Answer prompt rules, optionally overridden from a YAML file
	rules, err := prompt.Load(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load prompt rules: %v", err)
	}

	service := chat.NewService(chat.ServiceConfig{
		Sessions:       sessionRepo,
		Turns:          turnRepo,
		Intents:        intent.NewClassifier(provider, logger),
		Retriever:      retriever,
		Assembler:      assembler,
		Window:         history.NewWindow(turnRepo, cfg.HistoryTurns),
		Orchestrator:   chat.NewOrchestrator(provider, rules, logger),
		RetrievalLimit: cfg.RetrievalLimit,
		Logger:         logger,
	})

	// Redis question queue and background worker
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	logger.Info("redis connected")

	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "chat-worker"
	}
	relayClient := relay.NewClient(cfg.RelayURL)
	worker := queue.NewWorker(rdb, consumer, cfg.WorkerConcurrency, service, relayClient, logger)
	if err := worker.EnsureGroup(ctx); err != nil {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	chatHandler := handler.NewChatHandler(service, queue.NewQueue(rdb, logger), logger)
	chatHandler.Register(mux)

	// Direct streaming channel
	mux.Handle("GET /ws/chat/{id}", ws.NewHandler(service, logger))

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if cfg.JWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		httpHandler = middleware.Auth(jwtVerifier, logger)(httpHandler)
	} else {
		logger.Warn("JWKS_URL not set, API authentication disabled")
	}
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     httpHandler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout disabled to allow long-lived websocket streams
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Server error: %v", err)
	}

	logger.Info("server stopped")
}
