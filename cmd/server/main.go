package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dograh/blogforge/internal/api"
	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/metrics"
	"github.com/dograh/blogforge/internal/ollama"
	"github.com/dograh/blogforge/internal/queue"
	"github.com/dograh/blogforge/internal/search"
	"github.com/dograh/blogforge/internal/workflow"
	"github.com/dograh/blogforge/pkg/logging"
	"github.com/dograh/blogforge/pkg/tracing"
)

func main() {
	// Load .env if present; real environment wins
	_ = godotenv.Load()

	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("blogforge service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("blogforge")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "blogforge.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "localhost:6379")
	ollamaURLDefault := getEnv("OLLAMA_URL", "http://localhost:11434")
	ollamaModelDefault := getEnv("OLLAMA_MODEL", ollama.DefaultModel)
	tavilyKeyDefault := getEnv("TAVILY_API_KEY", "")
	concurrencyDefault := getEnvInt("WORKER_CONCURRENCY", 5)

	var (
		port        = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath      = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr   = flag.String("redis-addr", redisAddrDefault, "Redis address for the task queue (env: REDIS_ADDR)")
		ollamaURL   = flag.String("ollama-url", ollamaURLDefault, "Ollama API URL (env: OLLAMA_URL)")
		ollamaModel = flag.String("ollama-model", ollamaModelDefault, "Ollama model to use (env: OLLAMA_MODEL)")
		tavilyKey   = flag.String("tavily-api-key", tavilyKeyDefault, "Tavily API key for web search (env: TAVILY_API_KEY)")
		concurrency = flag.Int("concurrency", concurrencyDefault, "Worker concurrency (env: WORKER_CONCURRENCY)")
	)
	flag.Parse()

	// Initialize database (runs migrations)
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	// Business metrics on the default registry, exposed via /metrics
	businessMetrics := metrics.NewBusinessMetrics(prometheus.DefaultRegisterer, "blogforge")

	// Initialize Ollama client
	ollamaClient, err := ollama.New(*ollamaURL, *ollamaModel)
	if err != nil {
		logger.Error("failed to initialize Ollama client",
			"error", err,
			"ollama_url", *ollamaURL,
			"ollama_model", *ollamaModel,
		)
		os.Exit(1)
	}
	logger.Info("Ollama client initialized", "model", *ollamaModel, "url", *ollamaURL)

	// Initialize Tavily search client
	searchClient := search.New(*tavilyKey, search.DefaultBaseURL)
	if *tavilyKey == "" {
		logger.Warn("TAVILY_API_KEY not set; competitor research steps will fail")
	}

	// Queue client for enqueueing, worker for processing
	queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
	defer queueClient.Close()

	service := workflow.NewService(db, ollamaClient, searchClient, queueClient, businessMetrics)

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisAddr:   *redisAddr,
		Concurrency: *concurrency,
	}, service)

	go func() {
		if err := worker.Start(); err != nil {
			logger.Error("worker failed", "error", err)
			os.Exit(1)
		}
	}()

	// Expire stale sessions hourly
	expiryDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				expired, err := db.ExpireSessions(time.Now().UTC())
				if err != nil {
					logger.Error("session expiry sweep failed", "error", err)
				} else if expired > 0 {
					logger.Info("expired stale sessions", "count", expired)
				}
			case <-expiryDone:
				return
			}
		}
	}()

	// Initialize API handler
	apiHandler := api.NewHandler(db, service, queueClient)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("blogforge")(apiHandler),
	)

	// Create server with extended timeouts for AI processing
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("blogforge service starting",
			"port", *port,
			"database", *dbPath,
			"redis_addr", *redisAddr,
			"ollama_url", *ollamaURL,
			"ollama_model", *ollamaModel,
			"worker_concurrency", *concurrency,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	close(expiryDone)
	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
