package plagiarism

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Similarity thresholds per field shape. A match record is only emitted when
// a score strictly exceeds its shape's threshold; the exact-URL shape is the
// exception and matches at 1.0 exactly.
const (
	// FreeTextThreshold gates matches on narrative fields and keyword lists.
	FreeTextThreshold = 0.2
	// RecordTextThreshold gates matches on structured record text (data
	// points, facts, experiences, quotes). Higher than free text because
	// these entries are short and overlap more easily.
	RecordTextThreshold = 0.3
	// SameDomainThreshold gates matches on data point source URLs: same
	// domain or better.
	SameDomainThreshold = 0.5
	// ExactURLThreshold gates matches on tool and resource links: only
	// verbatim reuse of the same link counts, not same-domain reuse.
	ExactURLThreshold = 1.0
)

const snippetLength = 200

// ErrUnknownStepKind is returned when a step kind has no comparison rules.
// This indicates an integration bug, not bad user data, so it fails loudly
// instead of being skipped.
var ErrUnknownStepKind = errors.New("unknown step kind")

// StepKind identifies the field shapes a workflow step's human input carries.
type StepKind string

const (
	KindExpertOpinion     StepKind = "expert_opinion"
	KindSecondaryKeywords StepKind = "secondary_keywords"
	KindDataCollection    StepKind = "data_collection"
	KindToolsResearch     StepKind = "tools_research"
	KindResourceLinks     StepKind = "resource_links"
	KindCredibility       StepKind = "credibility"
	KindFinalReview       StepKind = "final_review"
	KindFreeText          StepKind = "free_text"
)

// QuestionAnswer is one answered guidance question from the expert opinion
// step.
type QuestionAnswer struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// DataPoint is a cited statistic collected during data collection. The text
// payload lives in Statistic, with Content kept as the legacy field name from
// older sessions.
type DataPoint struct {
	Statistic string `json:"statistic,omitempty"`
	Content   string `json:"content,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Text returns the data point's text payload, preferring the current field
// name over the legacy one.
func (d DataPoint) Text() string {
	if d.Statistic != "" {
		return d.Statistic
	}
	return d.Content
}

// LinkedItem is a tool or resource entry carrying a URL.
type LinkedItem struct {
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Label returns the item's display name.
func (l LinkedItem) Label() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Title
}

// StepInput holds the user-supplied fields extracted from one step of one
// session. Only the fields relevant to the step's kind are populated; the
// comparison rules for that kind decide which fields are examined.
type StepInput struct {
	ExpertOpinion   string           `json:"expert_opinion,omitempty"`
	WritingStyle    string           `json:"writing_style,omitempty"`
	QuestionAnswers []QuestionAnswer `json:"question_answers,omitempty"`
	Keywords        []string         `json:"keywords,omitempty"`
	DataPoints      []DataPoint      `json:"data_points,omitempty"`
	Tools           []LinkedItem     `json:"tools,omitempty"`
	Links           []LinkedItem     `json:"links,omitempty"`
	Facts           []string         `json:"facts,omitempty"`
	Experiences     []string         `json:"experiences,omitempty"`
	Quotes          []string         `json:"quotes,omitempty"`
	Feedback        string           `json:"feedback,omitempty"`
	Text            string           `json:"text,omitempty"`
}

// Match is one field-level comparison that cleared its shape's threshold,
// carrying both sides' snippets for human review.
type Match struct {
	Field   string  `json:"field"`
	Score   float64 `json:"score"`
	Current string  `json:"current"`
	Past    string  `json:"past"`
}

// StepComparison is the result of comparing one step's input against one past
// session's input for the same step.
type StepComparison struct {
	OverallScore float64 `json:"overall_score"`
	Matches      []Match `json:"matches"`
}

// accumulator collects raw scores and qualifying matches during one step
// comparison. Every computed score feeds the running max, but only scores
// clearing the threshold become visible match records. The asymmetry is
// intentional: the step score answers "is there any evidence at all", the
// match list is the displayable evidence.
type accumulator struct {
	scores  []float64
	matches []Match
}

// record accumulates a raw score and emits a match when it strictly exceeds
// the threshold.
func (a *accumulator) record(field string, score, threshold float64, current, past string) {
	a.scores = append(a.scores, score)
	if score > threshold {
		a.matches = append(a.matches, Match{
			Field:   field,
			Score:   score,
			Current: snippet(current),
			Past:    snippet(past),
		})
	}
}

// recordInclusive is record with an inclusive threshold, used for the
// exact-URL shape where the maximum score of 1.0 is the only match.
func (a *accumulator) recordInclusive(field string, score, threshold float64, current, past string) {
	a.scores = append(a.scores, score)
	if score >= threshold {
		a.matches = append(a.matches, Match{
			Field:   field,
			Score:   score,
			Current: current,
			Past:    past,
		})
	}
}

func (a *accumulator) max() float64 {
	best := 0.0
	for _, s := range a.scores {
		if s > best {
			best = s
		}
	}
	return best
}

func snippet(text string) string {
	if len(text) <= snippetLength {
		return text
	}
	// Back off to a rune boundary so truncation never splits a multi-byte
	// character
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// compareRule examines one field shape of the two inputs.
type compareRule func(current, past StepInput, n int, acc *accumulator)

// compareRules is the fixed dispatch table: which field shapes are compared
// for each step kind. Adding a new kind means adding an entry here, nothing
// else.
var compareRules = map[StepKind][]compareRule{
	KindExpertOpinion: {
		textRule("expert_opinion", func(in StepInput) string { return in.ExpertOpinion }, FreeTextThreshold),
		textRule("writing_style", func(in StepInput) string { return in.WritingStyle }, FreeTextThreshold),
		compareQuestionAnswers,
	},
	KindSecondaryKeywords: {compareKeywords},
	KindDataCollection:    {compareDataPoints},
	KindToolsResearch: {
		linkedItemRule("tool", func(in StepInput) []LinkedItem { return in.Tools }),
	},
	KindResourceLinks: {
		linkedItemRule("link", func(in StepInput) []LinkedItem { return in.Links }),
	},
	KindCredibility: {
		textListRule("fact", func(in StepInput) []string { return in.Facts }),
		textListRule("experience", func(in StepInput) []string { return in.Experiences }),
		textListRule("quote", func(in StepInput) []string { return in.Quotes }),
	},
	KindFinalReview: {
		textRule("feedback", func(in StepInput) string { return in.Feedback }, FreeTextThreshold),
	},
	KindFreeText: {
		textRule("text", func(in StepInput) string { return in.Text }, FreeTextThreshold),
	},
}

// CompareStep compares the current session's input for one step against a
// past session's input for the same step. Fields absent or empty on either
// side are skipped entirely: absence is a non-comparison, not a zero score.
func CompareStep(current, past StepInput, kind StepKind, n int) (StepComparison, error) {
	rules, ok := compareRules[kind]
	if !ok {
		return StepComparison{}, fmt.Errorf("%w: %q", ErrUnknownStepKind, kind)
	}

	acc := &accumulator{}
	for _, rule := range rules {
		rule(current, past, n, acc)
	}

	return StepComparison{
		OverallScore: acc.max(),
		Matches:      acc.matches,
	}, nil
}

// textRule compares a single free-text field via n-gram similarity.
func textRule(field string, get func(StepInput) string, threshold float64) compareRule {
	return func(current, past StepInput, n int, acc *accumulator) {
		cur, old := get(current), get(past)
		if cur == "" || old == "" {
			return
		}
		acc.record(field, NgramSimilarity(cur, old, n), threshold, cur, old)
	}
}

// compareQuestionAnswers compares answers pairwise by position: the guidance
// questions are the same across sessions, so answer i corresponds to
// answer i.
func compareQuestionAnswers(current, past StepInput, n int, acc *accumulator) {
	limit := len(current.QuestionAnswers)
	if len(past.QuestionAnswers) < limit {
		limit = len(past.QuestionAnswers)
	}
	for i := 0; i < limit; i++ {
		cur, old := current.QuestionAnswers[i].Answer, past.QuestionAnswers[i].Answer
		if cur == "" || old == "" {
			continue
		}
		field := fmt.Sprintf("question_answer_%d", i+1)
		acc.record(field, NgramSimilarity(cur, old, n), FreeTextThreshold, cur, old)
	}
}

// compareKeywords compares keyword lists as whole sets, not entry by entry.
func compareKeywords(current, past StepInput, _ int, acc *accumulator) {
	if len(current.Keywords) == 0 || len(past.Keywords) == 0 {
		return
	}
	score := KeywordSimilarity(current.Keywords, past.Keywords)
	acc.record("keywords", score, FreeTextThreshold,
		joinKeywords(current.Keywords), joinKeywords(past.Keywords))
}

func joinKeywords(keywords []string) string {
	out := ""
	for i, k := range keywords {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

// compareDataPoints cross-compares every current data point against every
// past one: statistic text via n-gram similarity, source URL independently
// via URL similarity. The lists are small by workflow design, so the full
// cross product is fine.
func compareDataPoints(current, past StepInput, n int, acc *accumulator) {
	for i, cur := range current.DataPoints {
		for _, old := range past.DataPoints {
			curText, oldText := cur.Text(), old.Text()
			if curText != "" && oldText != "" {
				field := fmt.Sprintf("data_point_%d_statistic", i+1)
				acc.record(field, NgramSimilarity(curText, oldText, n), RecordTextThreshold, curText, oldText)
			}

			if cur.Source != "" && old.Source != "" {
				field := fmt.Sprintf("data_point_%d_source", i+1)
				acc.record(field, URLSimilarity(cur.Source, old.Source), SameDomainThreshold, cur.Source, old.Source)
			}
		}
	}
}

// linkedItemRule cross-compares URL-bearing entries. Only verbatim reuse of
// the same link is flagged; same-domain reuse is normal for tool and resource
// lists and would drown the report in noise.
func linkedItemRule(prefix string, get func(StepInput) []LinkedItem) compareRule {
	return func(current, past StepInput, _ int, acc *accumulator) {
		for i, cur := range get(current) {
			for _, old := range get(past) {
				if cur.URL == "" || old.URL == "" {
					continue
				}
				field := fmt.Sprintf("%s_%d_url", prefix, i+1)
				score := URLSimilarity(cur.URL, old.URL)
				acc.recordInclusive(field, score, ExactURLThreshold,
					cur.Label()+" - "+cur.URL, old.Label()+" - "+old.URL)
			}
		}
	}
}

// textListRule cross-compares free-text list entries (facts, experiences,
// quotes) with the structured-record threshold.
func textListRule(prefix string, get func(StepInput) []string) compareRule {
	return func(current, past StepInput, n int, acc *accumulator) {
		for i, cur := range get(current) {
			for _, old := range get(past) {
				if cur == "" || old == "" {
					continue
				}
				field := fmt.Sprintf("%s_%d", prefix, i+1)
				acc.record(field, NgramSimilarity(cur, old, n), RecordTextThreshold, cur, old)
			}
		}
	}
}
