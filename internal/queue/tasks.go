package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/workflow"
)

// handleExecuteStep runs one AI-owned workflow step
func (w *Worker) handleExecuteStep(ctx context.Context, t *asynq.Task) error {
	var payload ExecuteStepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", asynq.SkipRetry)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	// Calculate queue wait time
	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}

	w.logger.Info("executing workflow step",
		"session_id", payload.SessionID,
		"step_number", payload.StepNumber,
		"retry_count", retryCount,
		"max_retries", maxRetry,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	ctx, span := w.spanFromPayload(ctx, TypeExecuteStep, payload.TraceID, payload.SpanID,
		queueWaitTime, payload.EnqueuedAt,
		attribute.String("session.id", payload.SessionID),
		attribute.Int("step.number", payload.StepNumber),
		attribute.Int("retry_count", retryCount),
	)
	if span != nil {
		defer span.End()
	}

	_, err := w.executor.ExecuteStep(ctx, payload.SessionID, payload.StepNumber)
	if err != nil {
		// Misaddressed tasks never succeed on retry
		if errors.Is(err, database.ErrNotFound) ||
			errors.Is(err, workflow.ErrHumanStep) ||
			errors.Is(err, workflow.ErrInvalidStep) ||
			errors.Is(err, workflow.ErrSessionCompleted) {
			w.logger.Error("permanent step execution error",
				"session_id", payload.SessionID,
				"step_number", payload.StepNumber,
				"error", err,
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if isRetriableLLMError(err) {
			w.logger.Warn("retriable step execution error, will retry",
				"session_id", payload.SessionID,
				"step_number", payload.StepNumber,
				"error", err,
				"retry_count", retryCount,
			)
			return err // Let Asynq retry
		}

		w.logger.Error("step execution failed",
			"session_id", payload.SessionID,
			"step_number", payload.StepNumber,
			"error", err,
		)
		return fmt.Errorf("step execution failed: %w", err)
	}

	w.logger.Info("workflow step completed",
		"session_id", payload.SessionID,
		"step_number", payload.StepNumber,
		"retry_count", retryCount,
	)
	return nil
}

// handleIndexInputs stores a completed session's human inputs in the
// plagiarism corpus
func (w *Worker) handleIndexInputs(ctx context.Context, t *asynq.Task) error {
	var payload IndexInputsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", asynq.SkipRetry)
	}

	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}

	w.logger.Info("indexing session inputs",
		"session_id", payload.SessionID,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	ctx, span := w.spanFromPayload(ctx, TypeIndexInputs, payload.TraceID, payload.SpanID,
		queueWaitTime, payload.EnqueuedAt,
		attribute.String("session.id", payload.SessionID),
	)
	if span != nil {
		defer span.End()
	}

	if err := w.executor.IndexSession(ctx, payload.SessionID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			w.logger.Error("session vanished before indexing",
				"session_id", payload.SessionID,
				"error", err,
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to index session inputs: %w", err)
	}

	w.logger.Info("session inputs indexed", "session_id", payload.SessionID)
	return nil
}

// spanFromPayload recreates the trace context captured at enqueue time and
// starts a consumer span linked to it. Returns a nil span when the payload
// carried no usable trace context; the caller's context is returned unchanged
// in that case.
func (w *Worker) spanFromPayload(ctx context.Context, taskType, traceIDHex, spanIDHex string, queueWaitTime time.Duration, enqueuedAt int64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if traceIDHex == "" || spanIDHex == "" {
		if existingSpan := trace.SpanFromContext(ctx); existingSpan.SpanContext().IsValid() {
			existingSpan.SetAttributes(attrs...)
		}
		return ctx, nil
	}

	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx, nil
	}
	spanID, err := trace.SpanIDFromHex(spanIDHex)
	if err != nil {
		return ctx, nil
	}

	remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

	spanAttrs := append([]attribute.KeyValue{
		attribute.String("task.type", taskType),
		attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
		attribute.Int64("enqueued_at", enqueuedAt),
	}, attrs...)

	ctx, span := otel.Tracer("blogforge").Start(ctx, "asynq.task.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(spanAttrs...),
	)

	span.AddEvent("task_processing_started", trace.WithAttributes(
		attribute.Float64("wait_time_seconds", queueWaitTime.Seconds()),
	))

	return ctx, span
}

// isRetriableLLMError determines if an error is retriable (connection/timeout)
// vs permanent (invalid input)
func isRetriableLLMError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"context deadline exceeded",
		"context canceled",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
