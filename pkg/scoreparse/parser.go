// Package scoreparse extracts numeric relevance scores from free-form
// completion text returned by generative scoring backends.
//
// Extraction is best-effort and lossy: when the completion does not
// enumerate scores positionally there is no guarantee the parsed ordering
// matches the model's actual confidence. Callers must treat degraded
// results as approximations, not as validated model scores.
package scoreparse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DefaultScore is the fallback used when the completion text yields fewer
// numbers than requested.
const DefaultScore = 0.1

// keywordScore is returned for a single-score request whose completion
// contains no number but affirms relevance in prose.
const keywordScore = 0.5

// relevanceKeywords are matched case-insensitively in the single-score
// fallback path.
var relevanceKeywords = []string{"relevant", "yes"}

// numberPattern matches a signed decimal number: optional leading minus,
// digits, optional fractional part.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Extract pulls n scores out of raw completion text.
//
// It first tries to recover a structured JSON number array (generative
// services are prompted for one, but frequently wrap it in prose or emit
// broken JSON). Failing that it scans for signed decimal numbers in
// left-to-right order. If fewer than n numbers are found the tail is padded
// with DefaultScore and degraded is true. For n==1 with no number at all, a
// keyword heuristic returns keywordScore when the text affirms relevance.
func Extract(text string, n int) (scores []float64, degraded bool) {
	if n <= 0 {
		return nil, false
	}

	if parsed, ok := extractJSONArray(text); ok && len(parsed) >= n {
		return parsed[:n], false
	}

	scores = make([]float64, 0, n)
	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		if len(scores) == n {
			break
		}
		// Skip enumeration labels such as the "1" in "Passage 1: 0.83".
		if loc[1] < len(text) && text[loc[1]] == ':' {
			continue
		}
		v, err := strconv.ParseFloat(text[loc[0]:loc[1]], 64)
		if err != nil {
			continue
		}
		scores = append(scores, v)
	}

	if len(scores) >= n {
		return scores[:n], false
	}

	if n == 1 && len(scores) == 0 {
		return []float64{keywordFallback(text)}, true
	}

	for len(scores) < n {
		scores = append(scores, DefaultScore)
	}
	return scores, true
}

// extractJSONArray attempts to recover a JSON array of numbers from text,
// repairing malformed JSON first.
func extractJSONArray(text string) ([]float64, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return nil, false
	}

	candidate := text[start : end+1]
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}

	var values []float64
	if err := json.Unmarshal([]byte(repaired), &values); err != nil {
		return nil, false
	}
	if len(values) == 0 {
		return nil, false
	}
	return values, true
}

func keywordFallback(text string) float64 {
	lower := strings.ToLower(text)
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw) {
			return keywordScore
		}
	}
	return DefaultScore
}
