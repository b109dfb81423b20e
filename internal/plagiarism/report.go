package plagiarism

// HasPlagiarismThreshold is the score above which a past-session comparison
// is recorded in the report as a flagged source.
const HasPlagiarismThreshold = 0.2

// Classification levels and their display colors.
const (
	LevelUnique     = "unique"
	LevelAcceptable = "acceptable"
	LevelHigh       = "high"
	LevelDuplicate  = "duplicate"

	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorOrange = "orange"
	ColorRed    = "red"
)

// Level maps a similarity score onto the four-tier classification scale.
func Level(score float64) string {
	switch {
	case score < 0.2:
		return LevelUnique
	case score < 0.5:
		return LevelAcceptable
	case score < 0.8:
		return LevelHigh
	default:
		return LevelDuplicate
	}
}

// Color maps a similarity score onto the display color for its level.
func Color(score float64) string {
	switch {
	case score < 0.2:
		return ColorGreen
	case score < 0.5:
		return ColorYellow
	case score < 0.8:
		return ColorOrange
	default:
		return ColorRed
	}
}

// SessionInputs is one session's extracted human inputs: the unit stored in
// the corpus and compared at check time. Keyword and timestamps are report
// metadata only and never affect scoring.
type SessionInputs struct {
	SessionID      string               `json:"session_id"`
	WorkflowKind   string               `json:"workflow_kind,omitempty"`
	PrimaryKeyword string               `json:"primary_keyword"`
	BlogType       string               `json:"blog_type,omitempty"`
	CreatedAt      string               `json:"created_at,omitempty"`
	Steps          map[string]StepInput `json:"steps"`
}

// CorpusMatch ties a flagged comparison back to the past session it came
// from.
type CorpusMatch struct {
	SessionID      string         `json:"session_id"`
	PrimaryKeyword string         `json:"primary_keyword"`
	CreatedAt      string         `json:"created_at,omitempty"`
	Details        StepComparison `json:"details"`
}

// StepResult is one step's classified comparison result across the whole
// corpus.
type StepResult struct {
	HasPlagiarism bool          `json:"has_plagiarism"`
	OverallScore  float64       `json:"overall_score"`
	Level         string        `json:"level"`
	Color         string        `json:"color"`
	Matches       []CorpusMatch `json:"matches_from_sessions"`
}

// SessionReport is the full plagiarism report for one session. It is a plain
// value suitable for direct JSON serialization.
type SessionReport struct {
	SessionID      string                `json:"session_id"`
	PrimaryKeyword string                `json:"primary_keyword"`
	Steps          map[string]StepResult `json:"steps"`
	OverallScore   float64               `json:"overall_plagiarism_score"`
	OverallLevel   string                `json:"overall_level"`
	OverallColor   string                `json:"overall_color"`
}

// StepMapping binds a workflow step key to the field-shape kind its human
// input carries. TextField names the raw field read for free-text kinds.
type StepMapping struct {
	Key       string
	Kind      StepKind
	TextField string
}

// StandardHumanSteps lists the standard (22-step) workflow's human-input
// steps in workflow order.
var StandardHumanSteps = []StepMapping{
	{Key: "4", Kind: KindExpertOpinion},
	{Key: "5", Kind: KindSecondaryKeywords},
	{Key: "9", Kind: KindDataCollection},
	{Key: "10", Kind: KindToolsResearch},
	{Key: "11", Kind: KindResourceLinks},
	{Key: "12", Kind: KindCredibility},
	{Key: "22", Kind: KindFinalReview},
}

// WebinarHumanSteps lists the webinar-derived (15-step) workflow's
// human-input steps in workflow order.
var WebinarHumanSteps = []StepMapping{
	{Key: "1", Kind: KindFreeText, TextField: "topic"},
	{Key: "4", Kind: KindFreeText, TextField: "transcript"},
	{Key: "5", Kind: KindFreeText, TextField: "guidelines"},
	{Key: "15", Kind: KindFinalReview},
}

// HumanSteps returns the human-input step mappings for a workflow kind,
// defaulting to the standard workflow.
func HumanSteps(workflowKind string) []StepMapping {
	if workflowKind == "webinar" {
		return WebinarHumanSteps
	}
	return StandardHumanSteps
}

// CheckStep compares one step's current input against every corpus entry
// that has data for the same step. The overall score is the max of every
// per-comparison raw score across the corpus; individual past sessions are
// recorded as matches only when their comparison clears the reporting
// threshold.
func CheckStep(current StepInput, kind StepKind, stepKey string, n int, corpus []SessionInputs) (StepResult, error) {
	result := StepResult{
		Level:   LevelUnique,
		Color:   ColorGreen,
		Matches: []CorpusMatch{},
	}

	for _, past := range corpus {
		pastInput, ok := past.Steps[stepKey]
		if !ok {
			continue
		}

		cmp, err := CompareStep(current, pastInput, kind, n)
		if err != nil {
			return StepResult{}, err
		}

		if cmp.OverallScore > result.OverallScore {
			result.OverallScore = cmp.OverallScore
		}

		if cmp.OverallScore > HasPlagiarismThreshold {
			result.HasPlagiarism = true
			result.Matches = append(result.Matches, CorpusMatch{
				SessionID:      past.SessionID,
				PrimaryKeyword: past.PrimaryKeyword,
				CreatedAt:      past.CreatedAt,
				Details:        cmp,
			})
		}
	}

	result.Level = Level(result.OverallScore)
	result.Color = Color(result.OverallScore)
	return result, nil
}

// CheckSession runs the plagiarism check for a session against the corpus of
// past sessions' inputs. Steps absent from the current session are left out
// of the report entirely; they are non-comparisons, not zero scores. The
// overall score averages only steps that produced a nonzero score, so it
// measures how bad the flagged overlaps are, not average overlap across
// everything examined.
//
// Pure function: no I/O, safe for concurrent use.
func CheckSession(current SessionInputs, corpus []SessionInputs, n int) (SessionReport, error) {
	if n < 1 {
		n = DefaultNgramSize
	}

	report := SessionReport{
		SessionID:      current.SessionID,
		PrimaryKeyword: current.PrimaryKeyword,
		Steps:          map[string]StepResult{},
		OverallLevel:   LevelUnique,
		OverallColor:   ColorGreen,
	}

	var stepScores []float64
	for _, mapping := range HumanSteps(current.WorkflowKind) {
		input, ok := current.Steps[mapping.Key]
		if !ok {
			continue
		}

		stepResult, err := CheckStep(input, mapping.Kind, mapping.Key, n, corpus)
		if err != nil {
			return SessionReport{}, err
		}

		report.Steps[mapping.Key] = stepResult
		if stepResult.OverallScore > 0 {
			stepScores = append(stepScores, stepResult.OverallScore)
		}
	}

	if len(stepScores) > 0 {
		sum := 0.0
		for _, s := range stepScores {
			sum += s
		}
		report.OverallScore = sum / float64(len(stepScores))
	}

	report.OverallLevel = Level(report.OverallScore)
	report.OverallColor = Color(report.OverallScore)
	return report, nil
}
