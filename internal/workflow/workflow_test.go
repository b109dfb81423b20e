package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/metrics"
	"github.com/dograh/blogforge/internal/models"
	"github.com/dograh/blogforge/internal/ollama"
	"github.com/dograh/blogforge/internal/search"
)

// fakeLLM returns canned responses for every generation call
type fakeLLM struct {
	failAll bool
}

func (f *fakeLLM) err() error {
	if f.failAll {
		return fmt.Errorf("model unavailable")
	}
	return nil
}

func (f *fakeLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return "generated text", f.err()
}

func (f *fakeLLM) AnalyzeSearchIntent(ctx context.Context, keyword, blogType string) (*ollama.SearchIntent, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return &ollama.SearchIntent{
		IntentType:      "informational",
		TargetAudience:  "support leads",
		UserGoals:       []string{"compare tools"},
		ContentAngle:    "practical guide",
		RecommendedTone: "direct",
	}, nil
}

func (f *fakeLLM) AnalyzeCompetitors(ctx context.Context, keyword string, articles []string) ([]ollama.CompetitorInsight, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return []ollama.CompetitorInsight{{URL: "https://example.com", Strengths: []string{"depth"}}}, nil
}

func (f *fakeLLM) GenerateOutline(ctx context.Context, keyword, blogType, intent, competitors string) (string, error) {
	return "## Outline", f.err()
}

func (f *fakeLLM) GenerateTitles(ctx context.Context, keyword, outline string) ([]string, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return []string{"Title A", "Title B"}, nil
}

func (f *fakeLLM) GenerateDraft(ctx context.Context, keyword, outline, opinion, dataPoints string) (string, error) {
	return "draft body", f.err()
}

func (f *fakeLLM) GenerateFAQ(ctx context.Context, keyword, draft string) ([]ollama.FAQEntry, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return []ollama.FAQEntry{{Question: "Q?", Answer: "A."}}, nil
}

func (f *fakeLLM) GenerateMetaDescription(ctx context.Context, keyword, draft string) (string, error) {
	return "meta description", f.err()
}

func (f *fakeLLM) RemoveAISignals(ctx context.Context, draft string) (string, error) {
	return "revised " + draft, f.err()
}

type fakeSearcher struct{}

func (f *fakeSearcher) Search(ctx context.Context, keyword string, maxResults int) (*search.SERPResponse, error) {
	return &search.SERPResponse{
		Query: keyword,
		Results: []search.Result{
			{Title: "Top Guide", URL: "https://example.com/guide", Score: 0.9},
		},
	}, nil
}

func (f *fakeSearcher) Extract(ctx context.Context, pageURL string) (*search.ExtractedPage, error) {
	return &search.ExtractedPage{
		URL:       pageURL,
		Title:     "Top Guide",
		Content:   "competitor article body",
		WordCount: 3,
	}, nil
}

type fakeEnqueuer struct {
	executed []string
	indexed  []string
}

func (f *fakeEnqueuer) EnqueueExecuteStep(ctx context.Context, sessionID string, stepNumber int) (string, error) {
	f.executed = append(f.executed, fmt.Sprintf("%s/%d", sessionID, stepNumber))
	return "task-id", nil
}

func (f *fakeEnqueuer) EnqueueIndexInputs(ctx context.Context, sessionID string) (string, error) {
	f.indexed = append(f.indexed, sessionID)
	return "task-id", nil
}

func newTestService(t *testing.T) (*Service, *fakeEnqueuer, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	enqueuer := &fakeEnqueuer{}
	m := metrics.NewBusinessMetrics(prometheus.NewRegistry(), "blogforge_test")
	svc := NewService(db, &fakeLLM{}, &fakeSearcher{}, enqueuer, m)
	return svc, enqueuer, db
}

func TestCreateSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "how_to_guide")
	require.NoError(t, err)

	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, models.StatusActive, state.Status)
	assert.Equal(t, 1, state.CurrentStep)
	require.Len(t, state.Steps, 22)

	step4 := state.Steps["4"]
	assert.Equal(t, "Expert Opinion / QnA", step4.StepName)
	assert.Equal(t, models.OwnerMixed, step4.Owner)
	assert.Equal(t, models.StepPending, step4.Status)
}

func TestCreateSessionRequiresKeyword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "   ", "guide")
	require.Error(t, err)
}

func TestCreateSessionWebinar(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowWebinar, "voice automation", "")
	require.NoError(t, err)
	assert.Len(t, state.Steps, 15)
	assert.Equal(t, models.OwnerHuman, state.Steps["1"].Owner)
}

func TestExecuteStepSearchIntent(t *testing.T) {
	svc, _, db := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	info, err := svc.ExecuteStep(context.Background(), state.SessionID, 1)
	require.NoError(t, err)

	assert.Equal(t, models.StepCompleted, info.Status)
	assert.Equal(t, "informational", info.Data["intent_type"])

	reloaded, err := db.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.CurrentStep)

	audit, err := db.GetAudit(state.SessionID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, 1, audit[0].StepNumber)
}

func TestExecuteStepRejectsHumanStep(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.ExecuteStep(context.Background(), state.SessionID, 5)
	assert.ErrorIs(t, err, ErrHumanStep)
}

func TestExecuteStepInvalidNumber(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.ExecuteStep(context.Background(), state.SessionID, 99)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestExecuteStepRecordsError(t *testing.T) {
	svc, _, db := newTestService(t)
	svc.llm = &fakeLLM{failAll: true}

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.ExecuteStep(context.Background(), state.SessionID, 1)
	require.Error(t, err)

	reloaded, err := db.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepError, reloaded.Steps["1"].Status)
	assert.Equal(t, "model unavailable", reloaded.Steps["1"].Data["error"])
	assert.Equal(t, 1, reloaded.CurrentStep, "failed step does not advance the workflow")
}

func TestCompetitorFetchAndAnalysis(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	info, err := svc.ExecuteStep(context.Background(), state.SessionID, 2)
	require.NoError(t, err)
	competitors, ok := info.Data["competitors"].([]interface{})
	require.True(t, ok)
	require.Len(t, competitors, 1)

	info, err = svc.ExecuteStep(context.Background(), state.SessionID, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Data["insights"])
}

func TestAnalysisWithoutFetchFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.ExecuteStep(context.Background(), state.SessionID, 3)
	require.Error(t, err)
}

func TestSubmitHumanInput(t *testing.T) {
	svc, _, db := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	info, err := svc.SubmitHumanInput(context.Background(), state.SessionID, 5, map[string]interface{}{
		"keywords": []interface{}{"ai calling", "voice agent"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, info.Status)
	assert.Equal(t, "submitted", info.HumanAction)

	reloaded, err := db.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, reloaded.Steps["5"].Status)
	assert.Equal(t, "submitted", reloaded.Steps["5"].HumanAction)
}

func TestSubmitHumanInputRejectsAIStep(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.SubmitHumanInput(context.Background(), state.SessionID, 1, map[string]interface{}{"x": "y"})
	assert.ErrorIs(t, err, ErrAIStep)
}

func TestSubmitHumanInputRequiresData(t *testing.T) {
	svc, _, _ := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	_, err = svc.SubmitHumanInput(context.Background(), state.SessionID, 5, nil)
	require.Error(t, err)
}

func TestSkipStep(t *testing.T) {
	svc, _, db := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	info, err := svc.SkipStep(context.Background(), state.SessionID, 10, "no tools relevant")
	require.NoError(t, err)
	assert.Equal(t, models.StepSkipped, info.Status)
	assert.Equal(t, "no tools relevant", info.SkipReason)

	audit, err := db.GetAudit(state.SessionID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.True(t, audit[0].Skipped)
}

func TestSessionCompletionEnqueuesIndexing(t *testing.T) {
	svc, enqueuer, db := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowWebinar, "voice automation", "")
	require.NoError(t, err)

	// Complete every step: humans via input, the rest skipped.
	def := ForKind(models.WorkflowWebinar)
	for _, step := range def.Steps {
		if def.IsHumanInput(step.Number) {
			_, err = svc.SubmitHumanInput(context.Background(), state.SessionID, step.Number,
				map[string]interface{}{"topic": "voice automation", "feedback": "ok"})
		} else {
			_, err = svc.SkipStep(context.Background(), state.SessionID, step.Number, "not needed")
		}
		require.NoError(t, err, "step %d", step.Number)
	}

	reloaded, err := db.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)
	require.Len(t, enqueuer.indexed, 1)
	assert.Equal(t, state.SessionID, enqueuer.indexed[0])
}

func TestExecuteStepOnCompletedSession(t *testing.T) {
	svc, _, db := newTestService(t)

	state, err := svc.CreateSession(context.Background(), models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	state.Status = models.StatusCompleted
	require.NoError(t, db.SaveSession(state))

	_, err = svc.ExecuteStep(context.Background(), state.SessionID, 1)
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestIndexAndCheckPlagiarism(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	past, err := svc.CreateSession(ctx, models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)
	_, err = svc.SubmitHumanInput(ctx, past.SessionID, 5, map[string]interface{}{
		"keywords": []interface{}{"ai calling", "voice agent"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.IndexSession(ctx, past.SessionID))

	current, err := svc.CreateSession(ctx, models.WorkflowStandard, "voice bots", "guide")
	require.NoError(t, err)
	_, err = svc.SubmitHumanInput(ctx, current.SessionID, 5, map[string]interface{}{
		"keywords": []interface{}{"ai calling", "voice bot"},
	})
	require.NoError(t, err)

	report, err := svc.CheckPlagiarism(ctx, current.SessionID)
	require.NoError(t, err)

	step, ok := report.Steps["5"]
	require.True(t, ok)
	assert.True(t, step.HasPlagiarism)
	assert.Equal(t, "acceptable", step.Level)
	require.Len(t, step.Matches, 1)
	assert.Equal(t, past.SessionID, step.Matches[0].SessionID)
}

func TestCheckPlagiarismExcludesSelf(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)
	_, err = svc.SubmitHumanInput(ctx, state.SessionID, 5, map[string]interface{}{
		"keywords": []interface{}{"ai calling", "voice agent"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.IndexSession(ctx, state.SessionID))

	report, err := svc.CheckPlagiarism(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.OverallScore, "a session never matches its own corpus entry")
}

func TestIndexSessionWithoutInputs(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	state, err := svc.CreateSession(ctx, models.WorkflowStandard, "ai calling", "guide")
	require.NoError(t, err)

	require.NoError(t, svc.IndexSession(ctx, state.SessionID))

	count, err := db.CountIndexedSessions()
	require.NoError(t, err)
	assert.Equal(t, 0, count, "sessions with no human inputs stay out of the corpus")
}

func TestDefinitions(t *testing.T) {
	assert.Equal(t, 22, Standard.TotalSteps())
	assert.Equal(t, 15, Webinar.TotalSteps())

	for _, n := range []int{4, 5, 9, 10, 11, 12, 13, 22} {
		assert.True(t, Standard.IsHumanInput(n), "standard step %d", n)
	}
	for _, n := range []int{1, 2, 3, 6, 7, 8, 14, 15, 16, 17, 18, 19, 20, 21} {
		assert.False(t, Standard.IsHumanInput(n), "standard step %d", n)
	}
	for _, n := range []int{1, 4, 5, 15} {
		assert.True(t, Webinar.IsHumanInput(n), "webinar step %d", n)
	}

	_, ok := Standard.Step(0)
	assert.False(t, ok)
	_, ok = Standard.Step(23)
	assert.False(t, ok)

	step, ok := Standard.Step(17)
	require.True(t, ok)
	assert.Equal(t, "Blog Draft Generation", step.Name)
	assert.Equal(t, 17, step.Number)
}
