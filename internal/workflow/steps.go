package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dograh/blogforge/internal/models"
)

// maxCompetitorPages caps how many SERP results get full content extraction
const maxCompetitorPages = 3

// runStep dispatches an AI-owned step to its generator. Earlier steps' data
// is read from the session state; each generator returns the data map stored
// on its step.
func (s *Service) runStep(ctx context.Context, state *models.SessionState, stepNumber int) (map[string]interface{}, error) {
	if state.WorkflowKind == models.WorkflowWebinar {
		return s.runWebinarStep(ctx, state, stepNumber)
	}
	return s.runStandardStep(ctx, state, stepNumber)
}

func (s *Service) runStandardStep(ctx context.Context, state *models.SessionState, stepNumber int) (map[string]interface{}, error) {
	switch stepNumber {
	case 1:
		return s.analyzeSearchIntent(ctx, state)
	case 2:
		return s.fetchCompetitors(ctx, state)
	case 3:
		return s.analyzeCompetitors(ctx, state)
	case 6:
		return s.promptStep(ctx, state, "blog_clustering", fmt.Sprintf(
			`Suggest 3-5 topic clusters for a content hub around the keyword "%s". For each cluster give a short name and the supporting article ideas. Keep it under 300 words.`,
			state.PrimaryKeyword))
	case 7:
		return s.generateOutline(ctx, state, stepData(state, 1), stepData(state, 3))
	case 8:
		return s.promptStep(ctx, state, "optimization_plan", fmt.Sprintf(
			`List concrete on-page optimizations for a blog post targeting "%s" so that LLM-based search surfaces cite it: question-shaped headings, direct answers, structured data suggestions. Keep it under 300 words.`,
			state.PrimaryKeyword))
	case 14:
		return s.promptStep(ctx, state, "landing_page_evaluation", fmt.Sprintf(
			`Evaluate whether a blog post about "%s" should link to a product landing page, and where those links fit naturally. Keep it under 200 words.`,
			state.PrimaryKeyword))
	case 15:
		return s.promptStep(ctx, state, "infographic_plan", fmt.Sprintf(
			`Propose one infographic for a blog post about "%s": what it shows, its sections, and the data it needs. Keep it under 200 words.`,
			state.PrimaryKeyword))
	case 16:
		return s.generateTitles(ctx, state, 7)
	case 17:
		return s.generateDraft(ctx, state, 7, 4, 9)
	case 18:
		return s.generateFAQ(ctx, state, 17)
	case 19:
		return s.generateMetaDescription(ctx, state, 17)
	case 20:
		return s.removeAISignals(ctx, state, 17)
	case 21:
		return s.exportDocument(state, 17, 20, 18, 19)
	default:
		return nil, fmt.Errorf("no generator for step %d", stepNumber)
	}
}

func (s *Service) runWebinarStep(ctx context.Context, state *models.SessionState, stepNumber int) (map[string]interface{}, error) {
	switch stepNumber {
	case 2:
		return s.fetchCompetitors(ctx, state)
	case 3:
		return s.analyzeCompetitors(ctx, state)
	case 6:
		return s.generateWebinarOutline(ctx, state)
	case 7:
		return s.promptStep(ctx, state, "optimization_plan", fmt.Sprintf(
			`List concrete on-page optimizations for a blog post targeting "%s" so that LLM-based search surfaces cite it. Keep it under 300 words.`,
			state.PrimaryKeyword))
	case 8:
		return s.promptStep(ctx, state, "landing_page_evaluation", fmt.Sprintf(
			`Evaluate whether a blog post about "%s" should link to a webinar signup page, and where those links fit naturally. Keep it under 200 words.`,
			state.PrimaryKeyword))
	case 9:
		return s.promptStep(ctx, state, "infographic_plan", fmt.Sprintf(
			`Propose one infographic summarizing the key takeaways of a webinar about "%s". Keep it under 200 words.`,
			state.PrimaryKeyword))
	case 10:
		return s.generateTitles(ctx, state, 6)
	case 11:
		return s.generateWebinarDraft(ctx, state)
	case 12:
		return s.generateMetaDescription(ctx, state, 11)
	case 13:
		return s.removeAISignals(ctx, state, 11)
	case 14:
		return s.exportDocument(state, 11, 13, 0, 12)
	default:
		return nil, fmt.Errorf("no generator for step %d", stepNumber)
	}
}

func (s *Service) analyzeSearchIntent(ctx context.Context, state *models.SessionState) (map[string]interface{}, error) {
	intent, err := s.llm.AnalyzeSearchIntent(ctx, state.PrimaryKeyword, state.BlogType)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"intent_type":      intent.IntentType,
		"target_audience":  intent.TargetAudience,
		"user_goals":       intent.UserGoals,
		"content_angle":    intent.ContentAngle,
		"recommended_tone": intent.RecommendedTone,
	}, nil
}

func (s *Service) fetchCompetitors(ctx context.Context, state *models.SessionState) (map[string]interface{}, error) {
	serp, err := s.searcher.Search(ctx, state.PrimaryKeyword, 10)
	if err != nil {
		return nil, err
	}

	var competitors []interface{}
	for i, result := range serp.Results {
		if i >= maxCompetitorPages {
			break
		}
		entry := map[string]interface{}{
			"title": result.Title,
			"url":   result.URL,
			"score": result.Score,
		}
		page, err := s.searcher.Extract(ctx, result.URL)
		if err != nil {
			s.logger.Warn("competitor extraction failed", "url", result.URL, "error", err)
		} else if page != nil {
			entry["content"] = page.Content
			entry["word_count"] = page.WordCount
		}
		competitors = append(competitors, entry)
	}

	return map[string]interface{}{
		"query":       serp.Query,
		"answer":      serp.Answer,
		"competitors": competitors,
		"fetched_at":  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) analyzeCompetitors(ctx context.Context, state *models.SessionState) (map[string]interface{}, error) {
	fetchData := stepData(state, 2)
	raw, _ := fetchData["competitors"].([]interface{})
	if len(raw) == 0 {
		return nil, fmt.Errorf("no competitor content available; run the fetch step first")
	}

	var articles []string
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		url, _ := entry["url"].(string)
		content, _ := entry["content"].(string)
		if content == "" {
			continue
		}
		articles = append(articles, url+"\n"+content)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("competitor pages had no extractable content")
	}

	insights, err := s.llm.AnalyzeCompetitors(ctx, state.PrimaryKeyword, articles)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	for _, insight := range insights {
		out = append(out, map[string]interface{}{
			"url":        insight.URL,
			"strengths":  insight.Strengths,
			"gaps":       insight.Gaps,
			"key_themes": insight.KeyThemes,
		})
	}
	return map[string]interface{}{"insights": out}, nil
}

func (s *Service) generateOutline(ctx context.Context, state *models.SessionState, intentData, competitorData map[string]interface{}) (map[string]interface{}, error) {
	intent, _ := intentData["content_angle"].(string)
	outline, err := s.llm.GenerateOutline(ctx, state.PrimaryKeyword, state.BlogType,
		intent, summarizeData(competitorData))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"outline": outline}, nil
}

func (s *Service) generateWebinarOutline(ctx context.Context, state *models.SessionState) (map[string]interface{}, error) {
	transcript, _ := stepData(state, 4)["transcript"].(string)
	guidelines, _ := stepData(state, 5)["guidelines"].(string)
	if transcript == "" {
		return nil, fmt.Errorf("webinar transcript is required before outlining")
	}

	background := "Webinar transcript:\n" + transcript
	if guidelines != "" {
		background += "\n\nContent guidelines:\n" + guidelines
	}
	outline, err := s.llm.GenerateOutline(ctx, state.PrimaryKeyword, "webinar recap",
		background, summarizeData(stepData(state, 3)))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"outline": outline}, nil
}

func (s *Service) generateTitles(ctx context.Context, state *models.SessionState, outlineStep int) (map[string]interface{}, error) {
	outline, _ := stepData(state, outlineStep)["outline"].(string)
	titles, err := s.llm.GenerateTitles(ctx, state.PrimaryKeyword, outline)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"titles": titles}, nil
}

func (s *Service) generateDraft(ctx context.Context, state *models.SessionState, outlineStep, opinionStep, dataStep int) (map[string]interface{}, error) {
	outline, _ := stepData(state, outlineStep)["outline"].(string)
	if outline == "" {
		return nil, fmt.Errorf("outline is required before drafting")
	}
	opinion, _ := stepData(state, opinionStep)["expert_opinion"].(string)

	draft, err := s.llm.GenerateDraft(ctx, state.PrimaryKeyword, outline, opinion,
		summarizeData(stepData(state, dataStep)))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"draft": draft}, nil
}

func (s *Service) generateWebinarDraft(ctx context.Context, state *models.SessionState) (map[string]interface{}, error) {
	outline, _ := stepData(state, 6)["outline"].(string)
	if outline == "" {
		return nil, fmt.Errorf("outline is required before drafting")
	}
	transcript, _ := stepData(state, 4)["transcript"].(string)

	draft, err := s.llm.GenerateDraft(ctx, state.PrimaryKeyword, outline, transcript, "")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"draft": draft}, nil
}

func (s *Service) generateFAQ(ctx context.Context, state *models.SessionState, draftStep int) (map[string]interface{}, error) {
	draft, _ := stepData(state, draftStep)["draft"].(string)
	if draft == "" {
		return nil, fmt.Errorf("draft is required before FAQ generation")
	}

	faq, err := s.llm.GenerateFAQ(ctx, state.PrimaryKeyword, draft)
	if err != nil {
		return nil, err
	}

	var entries []interface{}
	for _, entry := range faq {
		entries = append(entries, map[string]interface{}{
			"question": entry.Question,
			"answer":   entry.Answer,
		})
	}
	return map[string]interface{}{"faq": entries}, nil
}

func (s *Service) generateMetaDescription(ctx context.Context, state *models.SessionState, draftStep int) (map[string]interface{}, error) {
	draft, _ := stepData(state, draftStep)["draft"].(string)
	meta, err := s.llm.GenerateMetaDescription(ctx, state.PrimaryKeyword, draft)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"meta_description": meta}, nil
}

func (s *Service) removeAISignals(ctx context.Context, state *models.SessionState, draftStep int) (map[string]interface{}, error) {
	draft, _ := stepData(state, draftStep)["draft"].(string)
	if draft == "" {
		return nil, fmt.Errorf("draft is required before AI signal removal")
	}

	revised, err := s.llm.RemoveAISignals(ctx, draft)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"revised_draft": revised}, nil
}

// exportDocument assembles the final markdown document from the revised
// draft (falling back to the raw draft), FAQ, and meta description.
// No LLM involved.
func (s *Service) exportDocument(state *models.SessionState, draftStep, revisedStep, faqStep, metaStep int) (map[string]interface{}, error) {
	body, _ := stepData(state, revisedStep)["revised_draft"].(string)
	if body == "" {
		body, _ = stepData(state, draftStep)["draft"].(string)
	}
	if body == "" {
		return nil, fmt.Errorf("no draft available to export")
	}

	var doc strings.Builder
	doc.WriteString(body)

	if faqStep > 0 {
		if faq, ok := stepData(state, faqStep)["faq"].([]interface{}); ok && len(faq) > 0 {
			doc.WriteString("\n\n## FAQ\n")
			for _, item := range faq {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				question, _ := entry["question"].(string)
				answer, _ := entry["answer"].(string)
				doc.WriteString(fmt.Sprintf("\n### %s\n\n%s\n", question, answer))
			}
		}
	}

	result := map[string]interface{}{
		"document":    doc.String(),
		"exported_at": time.Now().UTC().Format(time.RFC3339),
	}
	if meta, ok := stepData(state, metaStep)["meta_description"].(string); ok && meta != "" {
		result["meta_description"] = meta
	}
	return result, nil
}

// promptStep runs a one-off prompt and stores its response under the given
// key
func (s *Service) promptStep(ctx context.Context, state *models.SessionState, key, prompt string) (map[string]interface{}, error) {
	response, err := s.llm.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{key: response}, nil
}

// stepData returns a step's stored data, or an empty map when absent
func stepData(state *models.SessionState, stepNumber int) map[string]interface{} {
	if step, ok := state.Steps[strconv.Itoa(stepNumber)]; ok && step != nil && step.Data != nil {
		return step.Data
	}
	return map[string]interface{}{}
}

// summarizeData flattens a step's data map into prompt text
func summarizeData(data map[string]interface{}) string {
	if len(data) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for key, value := range data {
		fmt.Fprintf(&b, "%s: %v\n", key, value)
	}
	return b.String()
}
