package plagiarism

import (
	"regexp"
	"strings"
)

// DefaultNgramSize is the word window used for text overlap comparison.
// 5-grams are long enough that shared windows almost always indicate
// copied phrasing rather than coincidence.
const DefaultNgramSize = 5

// \b is ASCII-only in RE2, so an accented word contributes its ASCII stem
// ("café" tokenizes as "caf") rather than being dropped whole. Deterministic
// on both sides of a comparison, so scores stay consistent.
var wordPattern = regexp.MustCompile(`\b[a-z0-9-]+\b`)

// Tokenize splits free text into lowercase word tokens. Words are runs of
// alphanumeric characters and hyphens; everything else is dropped. Never
// fails: empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Ngrams generates the set of n-length contiguous word windows from tokens,
// each canonicalized as the tokens joined by a single space. If the input is
// shorter than n, the whole sequence becomes a single n-gram so that short
// inputs still compare instead of producing an empty set.
func Ngrams(tokens []string, n int) map[string]struct{} {
	if len(tokens) == 0 {
		return map[string]struct{}{}
	}
	if n < 1 {
		n = DefaultNgramSize
	}

	grams := make(map[string]struct{})
	if len(tokens) < n {
		grams[strings.Join(tokens, " ")] = struct{}{}
		return grams
	}

	for i := 0; i+n <= len(tokens); i++ {
		grams[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return grams
}
