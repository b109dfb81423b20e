package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task type constants
const (
	TypeExecuteStep = "blogforge:execute_step"
	TypeIndexInputs = "blogforge:index_inputs"
)

// Queue names with their worker priorities. Step execution outranks corpus
// indexing because a human is usually waiting on the step result.
const (
	QueueStepExecution  = "step-execution"
	QueueCorpusIndexing = "corpus-indexing"
)

// ExecuteStepPayload represents the payload for AI step execution
type ExecuteStepPayload struct {
	SessionID  string `json:"session_id"`
	StepNumber int    `json:"step_number"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// IndexInputsPayload represents the payload for corpus indexing
type IndexInputsPayload struct {
	SessionID string `json:"session_id"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
	}
}

// executeStepTaskID builds a task ID carrying the session and step for
// observability, with a unique suffix per attempt. Asynq keeps a task's ID
// registered for its whole retention window, so a deterministic ID would
// reject re-execution of an errored step with ErrTaskIDConflict until the
// old task expired.
func executeStepTaskID(sessionID string, stepNumber int) string {
	return fmt.Sprintf("%s-step-%d-%s", sessionID, stepNumber, uuid.NewString())
}

// EnqueueExecuteStep enqueues an AI step execution task
func (c *Client) EnqueueExecuteStep(ctx context.Context, sessionID string, stepNumber int) (string, error) {
	payload := ExecuteStepPayload{
		SessionID:  sessionID,
		StepNumber: stepNumber,
		EnqueuedAt: time.Now().UnixNano(), // Record enqueue time for queue wait metrics
	}

	taskID := executeStepTaskID(sessionID, stepNumber)

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		// Record enqueue event
		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeExecuteStep),
			attribute.String("task.id", taskID),
			attribute.String("session_id", sessionID),
			attribute.Int("step_number", stepNumber),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeExecuteStep, payloadBytes, asynq.TaskID(taskID))

	opts := []asynq.Option{
		asynq.MaxRetry(10),                  // High retry tolerance for Ollama
		asynq.Timeout(15 * time.Minute),     // Step execution can involve several LLM calls
		asynq.Queue(QueueStepExecution),     // Step execution queue (highest priority)
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue execute step task: %w", err)
	}

	return info.ID, nil
}

// EnqueueIndexInputs enqueues a corpus indexing task for a session's human
// inputs
func (c *Client) EnqueueIndexInputs(ctx context.Context, sessionID string) (string, error) {
	payload := IndexInputsPayload{
		SessionID:  sessionID,
		EnqueuedAt: time.Now().UnixNano(),
	}

	// Unique per attempt for the same reason as step execution; indexing is
	// an idempotent upsert, so a duplicate task is harmless
	taskID := fmt.Sprintf("%s-index-%s", sessionID, uuid.NewString())

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		// Record enqueue event
		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeIndexInputs),
			attribute.String("task.id", taskID),
			attribute.String("session_id", sessionID),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeIndexInputs, payloadBytes, asynq.TaskID(taskID))

	opts := []asynq.Option{
		asynq.MaxRetry(3),                   // Standard retry for indexing
		asynq.Timeout(2 * time.Minute),      // Pure extraction and a few DB writes
		asynq.Queue(QueueCorpusIndexing),    // Corpus indexing queue (lower priority)
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue index inputs task: %w", err)
	}

	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
