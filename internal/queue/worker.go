package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dograh/blogforge/internal/models"
)

// Executor is the workflow surface the worker drives. Satisfied by
// workflow.Service.
type Executor interface {
	ExecuteStep(ctx context.Context, sessionID string, stepNumber int) (*models.StepInfo, error)
	IndexSession(ctx context.Context, sessionID string) error
}

// Worker wraps the Asynq server for processing tasks
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	executor    Executor
	concurrency int
	logger      *slog.Logger
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a new queue worker
func NewWorker(cfg WorkerConfig, executor Executor) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		// Concurrency determines how many tasks can be processed simultaneously
		Concurrency: cfg.Concurrency,

		// Queue priority: higher value = higher priority
		// Step execution gets priority because a human is waiting on the result;
		// corpus indexing happens after session completion and can wait
		Queues: map[string]int{
			QueueStepExecution:  7,
			QueueCorpusIndexing: 3,
		},

		// StrictPriority: false means queues are processed proportionally
		// true would mean step-execution must be empty before corpus-indexing runs
		StrictPriority: false,

		RetryDelayFunc: retryDelay,

		// Graceful shutdown timeout
		ShutdownTimeout: 30 * time.Second,

		// Error handler for logging
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			slog.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
	}

	server := asynq.NewServer(redisOpt, serverCfg)
	mux := asynq.NewServeMux()

	w := &Worker{
		server:      server,
		mux:         mux,
		executor:    executor,
		concurrency: cfg.Concurrency,
		logger:      slog.Default(),
	}

	w.registerHandlers()

	return w
}

// retryDelay backs off aggressively for LLM step execution. Ollama outages
// can last a while, so the ladder stretches to hours: 30s, 1m, 2m, 5m, 10m,
// 20m, 30m, 1h, 2h, 4h. Indexing tasks use a short standard ladder.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() == TypeExecuteStep {
		delays := []time.Duration{
			30 * time.Second,
			1 * time.Minute,
			2 * time.Minute,
			5 * time.Minute,
			10 * time.Minute,
			20 * time.Minute,
			30 * time.Minute,
			1 * time.Hour,
			2 * time.Hour,
			4 * time.Hour,
		}
		if n < len(delays) {
			return delays[n]
		}
		return delays[len(delays)-1]
	}

	delays := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
	}
	if n < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

// registerHandlers registers all task handlers with the worker
func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeExecuteStep, w.handleExecuteStep)
	w.mux.HandleFunc(TypeIndexInputs, w.handleIndexInputs)
}

// Start starts the worker to begin processing tasks
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queues", map[string]int{QueueStepExecution: 7, QueueCorpusIndexing: 3},
	)

	// Run is blocking - starts processing tasks
	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}
