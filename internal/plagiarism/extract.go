package plagiarism

import (
	"time"

	"github.com/dograh/blogforge/internal/models"
)

// ExtractSessionInputs pulls the user-supplied fields out of a session's raw
// step data, producing the record stored in the corpus and fed to
// CheckSession. Steps that are absent, skipped, or empty are left out.
// Step data originates from loosely-validated human and LLM JSON, so fields
// with the wrong shape are treated as absent rather than rejected.
func ExtractSessionInputs(state *models.SessionState) SessionInputs {
	inputs := SessionInputs{
		SessionID:      state.SessionID,
		WorkflowKind:   state.WorkflowKind,
		PrimaryKeyword: state.PrimaryKeyword,
		BlogType:       state.BlogType,
		CreatedAt:      state.CreatedAt.Format(time.RFC3339),
		Steps:          map[string]StepInput{},
	}

	for _, mapping := range HumanSteps(state.WorkflowKind) {
		step, ok := state.Steps[mapping.Key]
		if !ok || step == nil || len(step.Data) == 0 {
			continue
		}
		if step.Status == models.StepSkipped || asBool(step.Data["skipped"]) {
			continue
		}
		inputs.Steps[mapping.Key] = extractStepInput(mapping, step.Data)
	}

	return inputs
}

// extractStepInput maps one step's raw data onto the typed input shape for
// its kind.
func extractStepInput(mapping StepMapping, data map[string]interface{}) StepInput {
	switch mapping.Kind {
	case KindExpertOpinion:
		return StepInput{
			ExpertOpinion:   asString(data["expert_opinion"]),
			WritingStyle:    asString(data["writing_style"]),
			QuestionAnswers: asQuestionAnswers(data["question_answers"]),
		}
	case KindSecondaryKeywords:
		return StepInput{Keywords: asStringList(data["keywords"])}
	case KindDataCollection:
		return StepInput{DataPoints: asDataPoints(data["data_points"])}
	case KindToolsResearch:
		return StepInput{Tools: asLinkedItems(data["tools"])}
	case KindResourceLinks:
		return StepInput{Links: asLinkedItems(data["links"])}
	case KindCredibility:
		return StepInput{
			Facts:       asTextList(data["facts"], "fact"),
			Experiences: asStringList(data["experiences"]),
			Quotes:      asStringList(data["quotes"]),
		}
	case KindFinalReview:
		// Older sessions stored review feedback under "notes".
		feedback := asString(data["feedback"])
		if feedback == "" {
			feedback = asString(data["notes"])
		}
		return StepInput{Feedback: feedback}
	case KindFreeText:
		return StepInput{Text: asString(data[mapping.TextField])}
	}
	return StepInput{}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asTextList accepts a list whose entries are either plain strings or
// records carrying the text under the given key.
func asTextList(v interface{}, key string) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if t != "" {
				out = append(out, t)
			}
		case map[string]interface{}:
			if s := asString(t[key]); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func asQuestionAnswers(v interface{}) []QuestionAnswer {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []QuestionAnswer
	for _, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, QuestionAnswer{
			Question: asString(record["question"]),
			Answer:   asString(record["answer"]),
		})
	}
	return out
}

func asDataPoints(v interface{}) []DataPoint {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []DataPoint
	for _, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, DataPoint{
			Statistic: asString(record["statistic"]),
			Content:   asString(record["content"]),
			Source:    asString(record["source"]),
		})
	}
	return out
}

func asLinkedItems(v interface{}) []LinkedItem {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []LinkedItem
	for _, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, LinkedItem{
			Name:  asString(record["name"]),
			Title: asString(record["title"]),
			URL:   asString(record["url"]),
		})
	}
	return out
}
