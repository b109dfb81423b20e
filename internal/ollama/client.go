package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultModel   = "gpt-oss:20b"
	DefaultTimeout = 360 * time.Second
)

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// New creates a new Ollama client
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(baseURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// GenerateResponse generates a response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	log.Printf("Ollama: Sending request to model %s (timeout: %v)", c.model, c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})

	if err != nil {
		log.Printf("Ollama: Generation failed: %v", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	log.Printf("Ollama: Response received (%d chars)", len(result))
	return result, nil
}

// SearchIntent is the analyzed intent behind the primary keyword
type SearchIntent struct {
	IntentType      string   `json:"intent_type"`
	TargetAudience  string   `json:"target_audience"`
	UserGoals       []string `json:"user_goals"`
	ContentAngle    string   `json:"content_angle"`
	RecommendedTone string   `json:"recommended_tone"`
}

// AnalyzeSearchIntent classifies the search intent behind the primary keyword
func (c *Client) AnalyzeSearchIntent(ctx context.Context, primaryKeyword, blogType string) (*SearchIntent, error) {
	prompt := fmt.Sprintf(`Analyze the search intent behind the keyword "%s" for a "%s" blog post.

Determine:
- intent_type: "informational" | "commercial" | "transactional" | "navigational"
- target_audience: one sentence describing who searches this
- user_goals: array of 3-5 things the searcher wants to accomplish
- content_angle: the angle a blog post should take to satisfy this intent
- recommended_tone: the writing tone that fits this audience

Return ONLY a JSON object with those fields, nothing else:`, primaryKeyword, blogType)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var intent SearchIntent
	if err := parseJSONObject(response, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse search intent: %w", err)
	}
	return &intent, nil
}

// CompetitorInsight is one competitor article's analyzed strengths and gaps
type CompetitorInsight struct {
	URL        string   `json:"url"`
	Strengths  []string `json:"strengths"`
	Gaps       []string `json:"gaps"`
	WordCount  int      `json:"word_count,omitempty"`
	KeyThemes  []string `json:"key_themes"`
}

// AnalyzeCompetitors extracts strengths, gaps, and themes from competitor content
func (c *Client) AnalyzeCompetitors(ctx context.Context, primaryKeyword string, articles []string) ([]CompetitorInsight, error) {
	prompt := fmt.Sprintf(`You are analyzing competitor blog posts ranking for the keyword "%s".

For each article below, identify:
- url: the article URL (first line of each article block)
- strengths: what the article does well
- gaps: what it misses that a better article could cover
- key_themes: the main topics it covers

Articles:
%s

Return ONLY a JSON array of objects with fields: url, strengths, gaps, key_themes. Nothing else:`,
		primaryKeyword, strings.Join(articles, "\n---\n"))

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var insights []CompetitorInsight
	if err := parseJSONArray(response, &insights); err != nil {
		return nil, fmt.Errorf("failed to parse competitor insights: %w", err)
	}
	return insights, nil
}

// GenerateOutline produces a structured outline as markdown
func (c *Client) GenerateOutline(ctx context.Context, primaryKeyword, blogType, intent, competitorSummary string) (string, error) {
	prompt := fmt.Sprintf(`Create a detailed blog post outline for the keyword "%s" (blog type: %s).

Search intent summary:
%s

Competitor analysis summary:
%s

Requirements:
- Use markdown heading levels (##, ###)
- Cover every gap the competitors miss
- Include an introduction and conclusion section
- Do NOT write the article itself, only the outline

Outline:`, primaryKeyword, blogType, intent, competitorSummary)

	return c.GenerateResponse(ctx, prompt)
}

// GenerateTitles proposes candidate titles for the post
func (c *Client) GenerateTitles(ctx context.Context, primaryKeyword, outline string) ([]string, error) {
	prompt := fmt.Sprintf(`Generate 5 compelling blog post titles for the keyword "%s".

Rules:
- Each title must contain the keyword or a close variant
- Keep each title under 65 characters
- No clickbait, no ALL CAPS

Outline for context:
%s

Return ONLY a JSON array of strings, nothing else:`, primaryKeyword, outline)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var titles []string
	if err := parseJSONArray(response, &titles); err != nil {
		return nil, fmt.Errorf("failed to parse titles: %w", err)
	}
	return titles, nil
}

// GenerateDraft writes the full blog draft from the outline and collected inputs
func (c *Client) GenerateDraft(ctx context.Context, primaryKeyword, outline, expertOpinion, dataPoints string) (string, error) {
	prompt := fmt.Sprintf(`Write a complete blog post for the keyword "%s" following this outline:

%s

Incorporate the expert's perspective naturally (do not quote it verbatim):
%s

Weave in these collected data points with their sources:
%s

Requirements:
- Write in markdown
- Follow the outline structure exactly
- Use the expert's perspective to add original viewpoints
- Cite data points inline where relevant
- Do NOT add meta-commentary about the writing process

Blog post:`, primaryKeyword, outline, expertOpinion, dataPoints)

	return c.GenerateResponse(ctx, prompt)
}

// FAQEntry is one generated question and answer pair
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GenerateFAQ produces FAQ entries for the post
func (c *Client) GenerateFAQ(ctx context.Context, primaryKeyword, draft string) ([]FAQEntry, error) {
	prompt := fmt.Sprintf(`Based on the blog post below about "%s", generate 4-6 FAQ entries that
searchers commonly ask and that the post answers or should answer.

Blog post:
%s

Return ONLY a JSON array of objects with fields: question, answer. Keep answers to 2-3 sentences. Nothing else:`,
		primaryKeyword, draft)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var faq []FAQEntry
	if err := parseJSONArray(response, &faq); err != nil {
		return nil, fmt.Errorf("failed to parse FAQ: %w", err)
	}
	return faq, nil
}

// GenerateMetaDescription writes the SEO meta description
func (c *Client) GenerateMetaDescription(ctx context.Context, primaryKeyword, draft string) (string, error) {
	prompt := fmt.Sprintf(`Write an SEO meta description for a blog post about "%s".

Requirements:
- 150 to 160 characters
- Contains the keyword
- Compelling but factual, no clickbait
- One sentence, or two short ones

Blog post for context:
%s

Return ONLY the meta description text, nothing else:`, primaryKeyword, draft)

	return c.GenerateResponse(ctx, prompt)
}

// RemoveAISignals rewrites the draft to sound less machine-generated
func (c *Client) RemoveAISignals(ctx context.Context, draft string) (string, error) {
	prompt := fmt.Sprintf(`Revise the following blog post to remove patterns typical of AI-generated text:

- Vary sentence length and structure
- Remove hedging phrases ("it's worth noting", "in today's fast-paced world")
- Remove formulaic transitions and balanced both-sides constructions
- Cut filler sentences that restate the heading
- Keep the meaning, structure, facts, and markdown formatting intact

IMPORTANT: Return ONLY the revised post. Do NOT add commentary about what you changed.

Blog post:
%s

Revised post:`, draft)

	return c.GenerateResponse(ctx, prompt)
}

// parseJSONObject finds the first JSON object in an LLM response and decodes it
func parseJSONObject(response string, v interface{}) error {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object found in response")
	}
	return json.Unmarshal([]byte(response[start:end+1]), v)
}

// parseJSONArray finds the first JSON array in an LLM response and decodes it
func parseJSONArray(response string, v interface{}) error {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON array found in response")
	}
	return json.Unmarshal([]byte(response[start:end+1]), v)
}
