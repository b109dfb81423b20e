package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/models"
	"github.com/dograh/blogforge/internal/plagiarism"
	"github.com/dograh/blogforge/internal/stats"
	"github.com/dograh/blogforge/internal/workflow"
	"github.com/dograh/blogforge/pkg/tracing"
)

// WorkflowService is the session surface the handler drives. Satisfied by
// workflow.Service.
type WorkflowService interface {
	CreateSession(ctx context.Context, workflowKind, primaryKeyword, blogType string) (*models.SessionState, error)
	SubmitHumanInput(ctx context.Context, sessionID string, stepNumber int, data map[string]interface{}) (*models.StepInfo, error)
	SkipStep(ctx context.Context, sessionID string, stepNumber int, reason string) (*models.StepInfo, error)
	CheckPlagiarism(ctx context.Context, sessionID string) (plagiarism.SessionReport, error)
	IndexSession(ctx context.Context, sessionID string) error
}

// Enqueuer hands AI step execution to the background queue
type Enqueuer interface {
	EnqueueExecuteStep(ctx context.Context, sessionID string, stepNumber int) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db       *database.DB
	service  WorkflowService
	enqueuer Enqueuer
	stats    *stats.Collector
	mux      *http.ServeMux
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(db *database.DB, service WorkflowService, enqueuer Enqueuer) http.Handler {
	h := &Handler{
		db:       db,
		service:  service,
		enqueuer: enqueuer,
		stats:    stats.NewCollector(db),
		mux:      http.NewServeMux(),
	}

	h.setupRoutes()

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Wrap with CORS
	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint
	h.mux.HandleFunc("/api/sessions", h.handleSessions)
	h.mux.HandleFunc("/api/sessions/", h.handleSessionOperations)
	h.mux.HandleFunc("/api/plagiarism/corpus", h.handleCorpusInfo)
	h.mux.HandleFunc("/api/stats", h.handleStats)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleSessions handles session creation and listing
func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSession(w, r)
	case http.MethodGet:
		h.listSessions(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createSession starts a new blog workflow session
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkflowKind   string `json:"workflow_kind"`
		PrimaryKeyword string `json:"primary_keyword"`
		BlogType       string `json:"blog_type,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.PrimaryKeyword) == "" {
		respondError(w, "primary_keyword field is required", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.String("workflow.kind", req.WorkflowKind),
		attribute.String("primary.keyword", req.PrimaryKeyword))

	state, err := h.service.CreateSession(r.Context(), req.WorkflowKind, req.PrimaryKeyword, req.BlogType)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, state, http.StatusCreated)
}

// listSessions lists sessions with optional status filter and pagination
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	// Fetch sessions in a goroutine
	resultChan := make(chan []*models.SessionSummary)
	errorChan := make(chan error)

	go func() {
		sessions, err := h.db.ListSessions(status, limit, offset)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- sessions
	}()

	select {
	case sessions := <-resultChan:
		respondJSON(w, sessions, http.StatusOK)
	case err := <-errorChan:
		respondError(w, err.Error(), http.StatusInternalServerError)
	case <-time.After(30 * time.Second):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleSessionOperations routes /api/sessions/{id}[/...] requests
func (h *Handler) handleSessionOperations(w http.ResponseWriter, r *http.Request) {
	rest := r.URL.Path[len("/api/sessions/"):]
	if rest == "" {
		respondError(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	parts := strings.Split(rest, "/")
	sessionID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.getSession(w, r, sessionID)
		case http.MethodDelete:
			h.deleteSession(w, r, sessionID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "audit":
		h.getAudit(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "plagiarism":
		h.checkPlagiarism(w, r, sessionID)
	case len(parts) == 3 && parts[1] == "plagiarism" && parts[2] == "index":
		h.indexSession(w, r, sessionID)
	case len(parts) >= 2 && parts[1] == "steps":
		h.handleStepOperations(w, r, sessionID, parts[2:])
	default:
		respondError(w, "Not found", http.StatusNotFound)
	}
}

// getSession retrieves a specific session
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, id string) {
	resultChan := make(chan *models.SessionState)
	errorChan := make(chan error)

	go func() {
		state, err := h.db.GetSession(id)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- state
	}()

	select {
	case state := <-resultChan:
		respondJSON(w, state, http.StatusOK)
	case err := <-errorChan:
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	case <-time.After(30 * time.Second):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// deleteSession deletes a session and its audit trail
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.db.DeleteSession(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getAudit returns a session's audit trail
func (h *Handler) getAudit(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Confirm the session exists so an empty trail and a bad ID differ
	if _, err := h.db.GetSession(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	entries, err := h.db.GetAudit(id)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, entries, http.StatusOK)
}

// handleStepOperations routes /api/sessions/{id}/steps/{n}[/execute]
func (h *Handler) handleStepOperations(w http.ResponseWriter, r *http.Request, sessionID string, parts []string) {
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, "Step number is required", http.StatusBadRequest)
		return
	}

	stepNumber, err := strconv.Atoi(parts[0])
	if err != nil {
		respondError(w, "Invalid step number", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "execute" && r.Method == http.MethodPost:
		h.executeStep(w, r, sessionID, stepNumber)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitStepInput(w, r, sessionID, stepNumber)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// executeStep enqueues AI execution for a step. Human steps are rejected
// here; their data arrives via PUT.
func (h *Handler) executeStep(w http.ResponseWriter, r *http.Request, sessionID string, stepNumber int) {
	state, err := h.db.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if state.Status == models.StatusCompleted {
		respondError(w, "session already completed", http.StatusConflict)
		return
	}

	def := workflow.ForKind(state.WorkflowKind)
	if _, ok := def.Step(stepNumber); !ok {
		respondError(w, fmt.Sprintf("invalid step number: %d", stepNumber), http.StatusBadRequest)
		return
	}
	if def.IsHumanInput(stepNumber) {
		respondError(w, fmt.Sprintf("step %d requires human input; submit it via PUT /api/sessions/%s/steps/%d",
			stepNumber, sessionID, stepNumber), http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.String("session.id", sessionID),
		attribute.Int("step.number", stepNumber))

	taskID, err := h.enqueuer.EnqueueExecuteStep(r.Context(), sessionID, stepNumber)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to enqueue step execution: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"session_id":  sessionID,
		"step_number": stepNumber,
		"task_id":     taskID,
		"status":      "queued",
		"message":     "Step queued for execution",
	}, http.StatusAccepted)
}

// submitStepInput stores human input for a step, or skips the step when the
// request carries a skip flag
func (h *Handler) submitStepInput(w http.ResponseWriter, r *http.Request, sessionID string, stepNumber int) {
	var req struct {
		Data       map[string]interface{} `json:"data"`
		Skip       bool                   `json:"skip,omitempty"`
		SkipReason string                 `json:"skip_reason,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var info *models.StepInfo
	var err error
	if req.Skip {
		info, err = h.service.SkipStep(r.Context(), sessionID, stepNumber, req.SkipReason)
	} else {
		info, err = h.service.SubmitHumanInput(r.Context(), sessionID, stepNumber, req.Data)
	}

	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, workflow.ErrInvalidStep),
			errors.Is(err, workflow.ErrAIStep):
			respondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, workflow.ErrSessionCompleted):
			respondError(w, err.Error(), http.StatusConflict)
		default:
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, info, http.StatusOK)
}

// checkPlagiarism runs the plagiarism report for a session
func (h *Handler) checkPlagiarism(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.service.CheckPlagiarism(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, report, http.StatusOK)
}

// indexSession manually (re-)indexes a session's human inputs into the corpus
func (h *Handler) indexSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.service.IndexSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, map[string]string{
		"session_id": sessionID,
		"status":     "indexed",
	}, http.StatusOK)
}

// handleCorpusInfo reports the size of the plagiarism corpus
func (h *Handler) handleCorpusInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	corpus, err := h.db.GetCorpus("")
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]map[string]interface{}, 0, len(corpus))
	for _, inputs := range corpus {
		entries = append(entries, map[string]interface{}{
			"session_id":      inputs.SessionID,
			"primary_keyword": inputs.PrimaryKeyword,
			"workflow_kind":   inputs.WorkflowKind,
			"created_at":      inputs.CreatedAt,
			"steps":           len(inputs.Steps),
		})
	}

	respondJSON(w, map[string]interface{}{
		"indexed_sessions": len(corpus),
		"entries":          entries,
	}, http.StatusOK)
}

// handleStats returns dashboard aggregates
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overview, err := h.stats.Overview()
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, overview, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
