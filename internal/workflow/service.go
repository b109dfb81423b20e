package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/metrics"
	"github.com/dograh/blogforge/internal/models"
	"github.com/dograh/blogforge/internal/ollama"
	"github.com/dograh/blogforge/internal/plagiarism"
	"github.com/dograh/blogforge/internal/search"
)

// DefaultSessionTTL is how long a session stays active before expiry
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrHumanStep is returned when AI execution is requested for a step
	// that needs human input.
	ErrHumanStep = errors.New("step requires human input")
	// ErrAIStep is returned when human input is submitted for an AI step.
	ErrAIStep = errors.New("step is AI-executed")
	// ErrInvalidStep is returned for step numbers outside the workflow.
	ErrInvalidStep = errors.New("invalid step number")
	// ErrSessionCompleted is returned when executing against a finished
	// session.
	ErrSessionCompleted = errors.New("session already completed")
)

// LLM is the language-model surface the workflow needs
type LLM interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	AnalyzeSearchIntent(ctx context.Context, primaryKeyword, blogType string) (*ollama.SearchIntent, error)
	AnalyzeCompetitors(ctx context.Context, primaryKeyword string, articles []string) ([]ollama.CompetitorInsight, error)
	GenerateOutline(ctx context.Context, primaryKeyword, blogType, intent, competitorSummary string) (string, error)
	GenerateTitles(ctx context.Context, primaryKeyword, outline string) ([]string, error)
	GenerateDraft(ctx context.Context, primaryKeyword, outline, expertOpinion, dataPoints string) (string, error)
	GenerateFAQ(ctx context.Context, primaryKeyword, draft string) ([]ollama.FAQEntry, error)
	GenerateMetaDescription(ctx context.Context, primaryKeyword, draft string) (string, error)
	RemoveAISignals(ctx context.Context, draft string) (string, error)
}

// Searcher is the web-search surface the workflow needs
type Searcher interface {
	Search(ctx context.Context, keyword string, maxResults int) (*search.SERPResponse, error)
	Extract(ctx context.Context, pageURL string) (*search.ExtractedPage, error)
}

// Enqueuer hands work to the background queue
type Enqueuer interface {
	EnqueueExecuteStep(ctx context.Context, sessionID string, stepNumber int) (string, error)
	EnqueueIndexInputs(ctx context.Context, sessionID string) (string, error)
}

// Service orchestrates blog sessions through their workflow
type Service struct {
	db         *database.DB
	llm        LLM
	searcher   Searcher
	enqueuer   Enqueuer
	metrics    *metrics.BusinessMetrics
	logger     *slog.Logger
	sessionTTL time.Duration
}

// NewService creates the workflow service
func NewService(db *database.DB, llm LLM, searcher Searcher, enqueuer Enqueuer, m *metrics.BusinessMetrics) *Service {
	return &Service{
		db:         db,
		llm:        llm,
		searcher:   searcher,
		enqueuer:   enqueuer,
		metrics:    m,
		logger:     slog.Default(),
		sessionTTL: DefaultSessionTTL,
	}
}

// CreateSession initializes a new session with every step pending
func (s *Service) CreateSession(ctx context.Context, workflowKind, primaryKeyword, blogType string) (*models.SessionState, error) {
	if strings.TrimSpace(primaryKeyword) == "" {
		return nil, fmt.Errorf("primary keyword is required")
	}

	def := ForKind(workflowKind)
	now := time.Now().UTC()

	state := &models.SessionState{
		SessionID:      uuid.New().String(),
		WorkflowKind:   def.Kind,
		PrimaryKeyword: strings.TrimSpace(primaryKeyword),
		BlogType:       blogType,
		Status:         models.StatusActive,
		CurrentStep:    1,
		Steps:          make(map[string]*models.StepInfo, def.TotalSteps()),
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.sessionTTL),
	}

	for _, step := range def.Steps {
		state.Steps[strconv.Itoa(step.Number)] = &models.StepInfo{
			StepNumber: step.Number,
			StepName:   step.Name,
			Status:     models.StepPending,
			Owner:      step.Owner,
		}
	}

	if err := s.db.SaveSession(state); err != nil {
		return nil, err
	}

	s.metrics.SessionsCreatedTotal.WithLabelValues(def.Kind).Inc()
	s.logger.Info("session created",
		"session_id", state.SessionID,
		"workflow_kind", def.Kind,
		"primary_keyword", state.PrimaryKeyword,
	)
	return state, nil
}

// ExecuteStep runs an AI-owned step inline. The queue worker is the normal
// caller; the API enqueues instead of calling this directly.
func (s *Service) ExecuteStep(ctx context.Context, sessionID string, stepNumber int) (*models.StepInfo, error) {
	state, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status == models.StatusCompleted {
		return nil, ErrSessionCompleted
	}

	def := ForKind(state.WorkflowKind)
	stepDef, ok := def.Step(stepNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, stepNumber)
	}
	if def.IsHumanInput(stepNumber) {
		return nil, fmt.Errorf("%w: step %d (%s)", ErrHumanStep, stepNumber, stepDef.Name)
	}

	stepInfo := state.Steps[strconv.Itoa(stepNumber)]
	now := time.Now().UTC()
	stepInfo.Status = models.StepInProgress
	stepInfo.StartedAt = &now
	if err := s.db.SaveSession(state); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.runStep(ctx, state, stepNumber)
	duration := time.Since(start)

	if err != nil {
		s.finishStep(state, stepNumber, map[string]interface{}{"error": err.Error()}, models.StepError, "")
		s.appendAudit(state, stepDef, duration, fmt.Sprintf("failed: %v", err), "", false, "")
		s.metrics.StepsExecutedTotal.WithLabelValues(stepDef.Owner, "error").Inc()
		s.metrics.ObserveDurationWithExemplar(ctx, s.metrics.StepDuration, duration.Seconds(), "error")
		if saveErr := s.db.SaveSession(state); saveErr != nil {
			s.logger.Error("failed to persist step error", "session_id", sessionID, "error", saveErr)
		}
		return nil, fmt.Errorf("step %d (%s) failed: %w", stepNumber, stepDef.Name, err)
	}

	s.finishStep(state, stepNumber, data, models.StepCompleted, "")
	s.appendAudit(state, stepDef, duration, "completed", "", false, "")
	s.metrics.StepsExecutedTotal.WithLabelValues(stepDef.Owner, "completed").Inc()
	s.metrics.ObserveDurationWithExemplar(ctx, s.metrics.StepDuration, duration.Seconds(), "completed")

	if err := s.maybeCompleteSession(ctx, state, def); err != nil {
		return nil, err
	}
	if err := s.db.SaveSession(state); err != nil {
		return nil, err
	}

	s.logger.Info("step executed",
		"session_id", sessionID,
		"step", stepNumber,
		"step_name", stepDef.Name,
		"duration_ms", duration.Milliseconds(),
	)
	return state.Steps[strconv.Itoa(stepNumber)], nil
}

// SubmitHumanInput stores human-provided data for a human-owned step and
// marks it completed
func (s *Service) SubmitHumanInput(ctx context.Context, sessionID string, stepNumber int, data map[string]interface{}) (*models.StepInfo, error) {
	state, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status == models.StatusCompleted {
		return nil, ErrSessionCompleted
	}

	def := ForKind(state.WorkflowKind)
	stepDef, ok := def.Step(stepNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, stepNumber)
	}
	if !def.IsHumanInput(stepNumber) {
		return nil, fmt.Errorf("%w: step %d (%s)", ErrAIStep, stepNumber, stepDef.Name)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("step %d (%s): input data is required", stepNumber, stepDef.Name)
	}

	s.finishStep(state, stepNumber, data, models.StepCompleted, "")
	state.Steps[strconv.Itoa(stepNumber)].HumanAction = "submitted"
	s.appendAudit(state, stepDef, 0, "human input submitted", "submitted", false, "")
	s.metrics.StepsExecutedTotal.WithLabelValues(stepDef.Owner, "completed").Inc()

	if err := s.maybeCompleteSession(ctx, state, def); err != nil {
		return nil, err
	}
	if err := s.db.SaveSession(state); err != nil {
		return nil, err
	}

	s.logger.Info("human input stored",
		"session_id", sessionID,
		"step", stepNumber,
		"step_name", stepDef.Name,
	)
	return state.Steps[strconv.Itoa(stepNumber)], nil
}

// SkipStep marks a step skipped with a reason and advances the workflow
func (s *Service) SkipStep(ctx context.Context, sessionID string, stepNumber int, reason string) (*models.StepInfo, error) {
	state, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status == models.StatusCompleted {
		return nil, ErrSessionCompleted
	}

	def := ForKind(state.WorkflowKind)
	stepDef, ok := def.Step(stepNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, stepNumber)
	}

	s.finishStep(state, stepNumber, map[string]interface{}{"skipped": true}, models.StepSkipped, reason)
	s.appendAudit(state, stepDef, 0, "skipped", "", true, reason)
	s.metrics.StepsExecutedTotal.WithLabelValues(stepDef.Owner, "skipped").Inc()

	if err := s.maybeCompleteSession(ctx, state, def); err != nil {
		return nil, err
	}
	if err := s.db.SaveSession(state); err != nil {
		return nil, err
	}

	return state.Steps[strconv.Itoa(stepNumber)], nil
}

// CheckPlagiarism runs the session's inputs against the indexed corpus
func (s *Service) CheckPlagiarism(ctx context.Context, sessionID string) (plagiarism.SessionReport, error) {
	state, err := s.db.GetSession(sessionID)
	if err != nil {
		return plagiarism.SessionReport{}, err
	}

	current := plagiarism.ExtractSessionInputs(state)
	corpus, err := s.db.GetCorpus(sessionID)
	if err != nil {
		return plagiarism.SessionReport{}, err
	}

	report, err := plagiarism.CheckSession(current, corpus, plagiarism.DefaultNgramSize)
	if err != nil {
		return plagiarism.SessionReport{}, err
	}

	s.metrics.PlagiarismChecksTotal.WithLabelValues(report.OverallLevel).Inc()
	s.logger.Info("plagiarism check completed",
		"session_id", sessionID,
		"overall_score", report.OverallScore,
		"level", report.OverallLevel,
		"corpus_size", len(corpus),
	)
	return report, nil
}

// IndexSession extracts the session's human inputs and stores them in the
// corpus
func (s *Service) IndexSession(ctx context.Context, sessionID string) error {
	state, err := s.db.GetSession(sessionID)
	if err != nil {
		return err
	}

	inputs := plagiarism.ExtractSessionInputs(state)
	if len(inputs.Steps) == 0 {
		s.logger.Info("no human inputs to index", "session_id", sessionID)
		return nil
	}

	if err := s.db.IndexSessionInputs(inputs); err != nil {
		return err
	}

	s.metrics.CorpusIndexedTotal.Inc()
	if count, err := s.db.CountIndexedSessions(); err == nil {
		s.metrics.CorpusSize.Set(float64(count))
	}

	s.logger.Info("session inputs indexed",
		"session_id", sessionID,
		"steps", len(inputs.Steps),
	)
	return nil
}

// finishStep records a step's terminal state and advances the current step
// pointer when the finished step is the current one
func (s *Service) finishStep(state *models.SessionState, stepNumber int, data map[string]interface{}, status, skipReason string) {
	now := time.Now().UTC()
	stepInfo := state.Steps[strconv.Itoa(stepNumber)]
	stepInfo.Status = status
	stepInfo.Data = data
	stepInfo.SkipReason = skipReason
	stepInfo.CompletedAt = &now
	stepInfo.UpdatedAt = &now

	def := ForKind(state.WorkflowKind)
	if status != models.StepError && stepNumber == state.CurrentStep && state.CurrentStep < def.TotalSteps() {
		state.CurrentStep = stepNumber + 1
	}
	state.UpdatedAt = now
}

// maybeCompleteSession completes the session once every step has reached a
// terminal state, then enqueues corpus indexing
func (s *Service) maybeCompleteSession(ctx context.Context, state *models.SessionState, def Definition) error {
	for _, step := range def.Steps {
		info := state.Steps[strconv.Itoa(step.Number)]
		if info.Status != models.StepCompleted && info.Status != models.StepSkipped {
			return nil
		}
	}

	state.Status = models.StatusCompleted
	state.UpdatedAt = time.Now().UTC()
	s.metrics.SessionsCompletedTotal.Inc()
	s.logger.Info("session completed", "session_id", state.SessionID)

	if s.enqueuer != nil {
		if _, err := s.enqueuer.EnqueueIndexInputs(ctx, state.SessionID); err != nil {
			// Indexing is recoverable via the manual re-index endpoint
			s.logger.Error("failed to enqueue corpus indexing",
				"session_id", state.SessionID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *Service) appendAudit(state *models.SessionState, stepDef StepDef, duration time.Duration, summary, humanAction string, skipped bool, skipReason string) {
	entry := &models.AuditEntry{
		SessionID:       state.SessionID,
		StepNumber:      stepDef.Number,
		StepName:        stepDef.Name,
		Owner:           stepDef.Owner,
		Timestamp:       time.Now().UTC(),
		DurationSeconds: duration.Seconds(),
		Summary:         summary,
		HumanAction:     humanAction,
		Skipped:         skipped,
		SkipReason:      skipReason,
	}
	if err := s.db.AppendAudit(entry); err != nil {
		s.logger.Error("failed to append audit entry",
			"session_id", state.SessionID,
			"step", stepDef.Number,
			"error", err,
		)
	}
}
