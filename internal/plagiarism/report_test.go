package plagiarism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStepEmptyCorpus(t *testing.T) {
	result, err := CheckStep(StepInput{Keywords: []string{"ai calling"}}, KindSecondaryKeywords, "5", DefaultNgramSize, nil)
	require.NoError(t, err)

	assert.False(t, result.HasPlagiarism)
	assert.Equal(t, 0.0, result.OverallScore)
	assert.Equal(t, LevelUnique, result.Level)
	assert.Equal(t, ColorGreen, result.Color)
	assert.Empty(t, result.Matches)
}

func TestCheckStepMaxAcrossCorpus(t *testing.T) {
	current := StepInput{Keywords: []string{"ai calling", "voice agent"}}
	corpus := []SessionInputs{
		{
			SessionID:      "weak",
			PrimaryKeyword: "voice bots",
			Steps:          map[string]StepInput{"5": {Keywords: []string{"ai calling", "voice bot", "cold outreach", "dialer software"}}},
		},
		{
			SessionID:      "strong",
			PrimaryKeyword: "ai calling",
			Steps:          map[string]StepInput{"5": {Keywords: []string{"voice agent", "ai calling"}}},
		},
	}

	result, err := CheckStep(current, KindSecondaryKeywords, "5", DefaultNgramSize, corpus)
	require.NoError(t, err)

	// Weak session scores 1/5, strong session 1.0. The step takes the max
	// and only the strong session clears the reporting threshold.
	assert.Equal(t, 1.0, result.OverallScore)
	assert.True(t, result.HasPlagiarism)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "strong", result.Matches[0].SessionID)
	assert.Equal(t, "ai calling", result.Matches[0].PrimaryKeyword)
	assert.Equal(t, LevelDuplicate, result.Level)
	assert.Equal(t, ColorRed, result.Color)
}

func TestCheckStepCorpusEntryMissingStep(t *testing.T) {
	corpus := []SessionInputs{{
		SessionID: "other",
		Steps:     map[string]StepInput{"4": {ExpertOpinion: "something unrelated"}},
	}}

	result, err := CheckStep(StepInput{Keywords: []string{"ai calling"}}, KindSecondaryKeywords, "5", DefaultNgramSize, corpus)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.OverallScore)
	assert.Empty(t, result.Matches)
}

func TestCheckSessionPartialKeywordOverlap(t *testing.T) {
	current := SessionInputs{
		SessionID:      "current",
		PrimaryKeyword: "ai calling",
		Steps: map[string]StepInput{
			"5": {Keywords: []string{"ai calling", "voice agent"}},
		},
	}
	corpus := []SessionInputs{{
		SessionID:      "past",
		PrimaryKeyword: "voice bots",
		CreatedAt:      "2025-11-02T10:00:00Z",
		Steps: map[string]StepInput{
			"5": {Keywords: []string{"ai calling", "voice bot"}},
		},
	}}

	report, err := CheckSession(current, corpus, DefaultNgramSize)
	require.NoError(t, err)

	step, ok := report.Steps["5"]
	require.True(t, ok)
	assert.InDelta(t, 1.0/3.0, step.OverallScore, 1e-9)
	assert.True(t, step.HasPlagiarism)
	assert.Equal(t, LevelAcceptable, step.Level)
	assert.Equal(t, ColorYellow, step.Color)
	require.Len(t, step.Matches, 1)
	assert.Equal(t, "past", step.Matches[0].SessionID)

	// Only step 5 is present, so the session score is that step's score.
	assert.InDelta(t, 1.0/3.0, report.OverallScore, 1e-9)
	assert.Equal(t, LevelAcceptable, report.OverallLevel)
	assert.Equal(t, ColorYellow, report.OverallColor)
}

func TestCheckSessionAbsentStepsExcluded(t *testing.T) {
	current := SessionInputs{
		SessionID: "current",
		Steps: map[string]StepInput{
			"4": {ExpertOpinion: "a fully original take on conversational automation in mid market support teams"},
		},
	}

	report, err := CheckSession(current, nil, DefaultNgramSize)
	require.NoError(t, err)

	require.Len(t, report.Steps, 1)
	_, ok := report.Steps["4"]
	assert.True(t, ok)
	for _, key := range []string{"5", "9", "10", "11", "12", "22"} {
		_, ok := report.Steps[key]
		assert.False(t, ok, "absent step %s must not appear in the report", key)
	}
}

func TestCheckSessionEmptyCorpus(t *testing.T) {
	current := SessionInputs{
		SessionID: "current",
		Steps: map[string]StepInput{
			"4": {ExpertOpinion: "an opinion about automated dialing systems and their place in sales"},
			"5": {Keywords: []string{"ai calling", "voice agent"}},
		},
	}

	report, err := CheckSession(current, []SessionInputs{}, DefaultNgramSize)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.OverallScore)
	assert.Equal(t, LevelUnique, report.OverallLevel)
	assert.Equal(t, ColorGreen, report.OverallColor)
	for key, step := range report.Steps {
		assert.Equal(t, 0.0, step.OverallScore, "step %s", key)
		assert.False(t, step.HasPlagiarism, "step %s", key)
		assert.Empty(t, step.Matches, "step %s", key)
	}
}

func TestCheckSessionMeanSkipsZeroScores(t *testing.T) {
	opinion := "voice automation changes the economics of outbound sales for small teams fundamentally"
	current := SessionInputs{
		SessionID: "current",
		Steps: map[string]StepInput{
			"4": {ExpertOpinion: opinion},
			"5": {Keywords: []string{"totally", "fresh", "terms"}},
		},
	}
	corpus := []SessionInputs{{
		SessionID: "past",
		Steps: map[string]StepInput{
			"4": {ExpertOpinion: opinion},
			"5": {Keywords: []string{"unrelated", "keywords", "here"}},
		},
	}}

	report, err := CheckSession(current, corpus, DefaultNgramSize)
	require.NoError(t, err)

	// Step 4 scores 1.0, step 5 scores 0.0. Zero-score steps stay out of
	// the average, so the session score is 1.0, not 0.5.
	assert.Equal(t, 1.0, report.Steps["4"].OverallScore)
	assert.Equal(t, 0.0, report.Steps["5"].OverallScore)
	assert.Equal(t, 1.0, report.OverallScore)
	assert.Equal(t, LevelDuplicate, report.OverallLevel)
}

func TestCheckSessionWebinarWorkflowSteps(t *testing.T) {
	transcript := "welcome everyone to today's session on scaling customer support with voice automation tools"
	current := SessionInputs{
		SessionID:    "current",
		WorkflowKind: "webinar",
		Steps: map[string]StepInput{
			"4": {Text: transcript},
		},
	}
	corpus := []SessionInputs{{
		SessionID:    "past",
		WorkflowKind: "webinar",
		Steps: map[string]StepInput{
			"4": {Text: transcript},
		},
	}}

	report, err := CheckSession(current, corpus, DefaultNgramSize)
	require.NoError(t, err)

	step, ok := report.Steps["4"]
	require.True(t, ok)
	assert.Equal(t, 1.0, step.OverallScore)
}

func TestCheckSessionDefaultsNgramSize(t *testing.T) {
	text := "a shared sentence that should match itself exactly across the two sessions"
	current := SessionInputs{
		SessionID: "current",
		Steps:     map[string]StepInput{"4": {ExpertOpinion: text}},
	}
	corpus := []SessionInputs{{
		SessionID: "past",
		Steps:     map[string]StepInput{"4": {ExpertOpinion: text}},
	}}

	report, err := CheckSession(current, corpus, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Steps["4"].OverallScore)
}

func TestHumanSteps(t *testing.T) {
	standard := HumanSteps("standard")
	require.Len(t, standard, 7)
	assert.Equal(t, "4", standard[0].Key)
	assert.Equal(t, "22", standard[6].Key)

	webinar := HumanSteps("webinar")
	require.Len(t, webinar, 4)
	assert.Equal(t, KindFreeText, webinar[0].Kind)
	assert.Equal(t, "topic", webinar[0].TextField)

	// Unknown kinds fall back to the standard workflow.
	assert.Len(t, HumanSteps(""), 7)
}
