package plagiarism

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dograh/blogforge/internal/models"
)

func testSession(steps map[string]*models.StepInfo) *models.SessionState {
	return &models.SessionState{
		SessionID:      "sess-1",
		WorkflowKind:   models.WorkflowStandard,
		PrimaryKeyword: "ai calling",
		BlogType:       "solution_comparison",
		CreatedAt:      time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		Steps:          steps,
	}
}

func TestExtractSessionInputs(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"4": {
			StepNumber: 4,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"expert_opinion": "automation should augment agents not replace them",
				"writing_style":  "direct and practical",
				"question_answers": []interface{}{
					map[string]interface{}{"question": "who is the audience", "answer": "support leads at mid market companies"},
				},
			},
		},
		"5": {
			StepNumber: 5,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"keywords": []interface{}{"ai calling", "voice agent", ""},
			},
		},
		"9": {
			StepNumber: 9,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"data_points": []interface{}{
					map[string]interface{}{"statistic": "handle time drops forty percent", "source": "https://example.com/report"},
				},
			},
		},
	})

	inputs := ExtractSessionInputs(state)

	assert.Equal(t, "sess-1", inputs.SessionID)
	assert.Equal(t, "ai calling", inputs.PrimaryKeyword)
	assert.Equal(t, "2026-01-15T09:30:00Z", inputs.CreatedAt)
	require.Len(t, inputs.Steps, 3)

	step4 := inputs.Steps["4"]
	assert.Equal(t, "automation should augment agents not replace them", step4.ExpertOpinion)
	assert.Equal(t, "direct and practical", step4.WritingStyle)
	require.Len(t, step4.QuestionAnswers, 1)
	assert.Equal(t, "support leads at mid market companies", step4.QuestionAnswers[0].Answer)

	// Empty list members are dropped during extraction.
	assert.Equal(t, []string{"ai calling", "voice agent"}, inputs.Steps["5"].Keywords)

	step9 := inputs.Steps["9"]
	require.Len(t, step9.DataPoints, 1)
	assert.Equal(t, "handle time drops forty percent", step9.DataPoints[0].Statistic)
	assert.Equal(t, "https://example.com/report", step9.DataPoints[0].Source)
}

func TestExtractSessionInputsSkipsSkippedSteps(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"4": {
			StepNumber: 4,
			Status:     models.StepSkipped,
			Data:       map[string]interface{}{"expert_opinion": "skipped but populated"},
		},
		"5": {
			StepNumber: 5,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"skipped":  true,
				"keywords": []interface{}{"ai calling"},
			},
		},
	})

	inputs := ExtractSessionInputs(state)
	assert.Empty(t, inputs.Steps)
}

func TestExtractSessionInputsSkipsEmptyAndAbsentSteps(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"4": {StepNumber: 4, Status: models.StepPending},
		"5": nil,
	})

	inputs := ExtractSessionInputs(state)
	assert.Empty(t, inputs.Steps)
}

func TestExtractSessionInputsIgnoresNonHumanSteps(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"6": {
			StepNumber: 6,
			Status:     models.StepCompleted,
			Data:       map[string]interface{}{"outline": "generated outline text"},
		},
	})

	inputs := ExtractSessionInputs(state)
	assert.Empty(t, inputs.Steps, "machine-owned steps never enter the corpus")
}

func TestExtractSessionInputsMalformedFields(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"4": {
			StepNumber: 4,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"expert_opinion":   42,
				"writing_style":    "still valid",
				"question_answers": "not a list",
			},
		},
		"12": {
			StepNumber: 12,
			Status:     models.StepCompleted,
			Data: map[string]interface{}{
				"facts": []interface{}{
					"a plain string fact",
					map[string]interface{}{"fact": "a structured fact"},
					7,
				},
				"quotes": []interface{}{map[string]interface{}{"wrong": "shape"}},
			},
		},
	})

	inputs := ExtractSessionInputs(state)

	step4 := inputs.Steps["4"]
	assert.Empty(t, step4.ExpertOpinion, "wrong-typed field is treated as absent")
	assert.Equal(t, "still valid", step4.WritingStyle)
	assert.Nil(t, step4.QuestionAnswers)

	step12 := inputs.Steps["12"]
	assert.Equal(t, []string{"a plain string fact", "a structured fact"}, step12.Facts)
	assert.Nil(t, step12.Quotes)
}

func TestExtractSessionInputsFinalReviewLegacyNotes(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"22": {
			StepNumber: 22,
			Status:     models.StepCompleted,
			Data:       map[string]interface{}{"notes": "tighten the intro paragraph"},
		},
	})

	inputs := ExtractSessionInputs(state)
	assert.Equal(t, "tighten the intro paragraph", inputs.Steps["22"].Feedback)
}

func TestExtractSessionInputsWebinarFreeText(t *testing.T) {
	state := testSession(map[string]*models.StepInfo{
		"1": {
			StepNumber: 1,
			Status:     models.StepCompleted,
			Data:       map[string]interface{}{"topic": "scaling support with voice automation"},
		},
		"4": {
			StepNumber: 4,
			Status:     models.StepCompleted,
			Data:       map[string]interface{}{"transcript": "welcome everyone to the session"},
		},
	})
	state.WorkflowKind = models.WorkflowWebinar

	inputs := ExtractSessionInputs(state)
	assert.Equal(t, "scaling support with voice automation", inputs.Steps["1"].Text)
	assert.Equal(t, "welcome everyone to the session", inputs.Steps["4"].Text)
}
