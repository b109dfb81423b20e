package plagiarism

import (
	"regexp"
	"strings"
)

var urlProtocolPattern = regexp.MustCompile(`^https?://(www\.)?`)

// NgramSimilarity computes the Jaccard overlap of the two texts' n-gram sets.
// Returns a value in [0, 1]; 0.0 when either side has no tokens.
func NgramSimilarity(text1, text2 string, n int) float64 {
	if text1 == "" || text2 == "" {
		return 0.0
	}

	tokens1 := Tokenize(text1)
	tokens2 := Tokenize(text2)
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0.0
	}

	grams1 := Ngrams(tokens1, n)
	grams2 := Ngrams(tokens2, n)
	if len(grams1) == 0 || len(grams2) == 0 {
		return 0.0
	}

	common := 0
	for g := range grams1 {
		if _, ok := grams2[g]; ok {
			common++
		}
	}

	union := len(grams1) + len(grams2) - common
	if union == 0 {
		return 0.0
	}
	return float64(common) / float64(union)
}

// URLSimilarity compares two URLs on a three-step scale: 1.0 for an exact
// match after normalization, 0.5 for the same domain, 0.0 otherwise. Exact
// reuse and same-publisher reuse are qualitatively different signals, so this
// is deliberately not a continuous metric.
func URLSimilarity(url1, url2 string) float64 {
	if url1 == "" || url2 == "" {
		return 0.0
	}

	url1 = strings.TrimSpace(strings.ToLower(url1))
	url2 = strings.TrimSpace(strings.ToLower(url2))

	if url1 == url2 {
		return 1.0
	}

	if extractDomain(url1) == extractDomain(url2) {
		return 0.5
	}
	return 0.0
}

// extractDomain strips the protocol and optional www. prefix and returns the
// substring up to the first slash.
func extractDomain(url string) string {
	url = urlProtocolPattern.ReplaceAllString(url, "")
	if idx := strings.Index(url, "/"); idx >= 0 {
		return url[:idx]
	}
	return url
}

// KeywordSimilarity computes Jaccard similarity between two keyword lists,
// case-folding and trimming each member. Returns 0.0 when either list is
// empty.
func KeywordSimilarity(keywords1, keywords2 []string) float64 {
	if len(keywords1) == 0 || len(keywords2) == 0 {
		return 0.0
	}

	set1 := normalizeKeywordSet(keywords1)
	set2 := normalizeKeywordSet(keywords2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	common := 0
	for k := range set1 {
		if _, ok := set2[k]; ok {
			common++
		}
	}

	union := len(set1) + len(set2) - common
	if union == 0 {
		return 0.0
	}
	return float64(common) / float64(union)
}

func normalizeKeywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(strings.ToLower(k))
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
