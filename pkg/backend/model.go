package backend

import (
	"math"
	"strings"
)

// Model is an in-process scoring model. It is treated as a single
// exclusively-owned resource: DirectBackend serializes every call, so
// implementations need not be safe for concurrent use.
type Model interface {
	// ModelName returns the model identifier reported by readiness probes.
	ModelName() string

	// ComputeScore scores one query/passage pair.
	ComputeScore(query, passage string) (float64, error)

	// ComputeScoresBatch scores all passages against a query in one
	// inference call, preserving passage order.
	ComputeScoresBatch(query string, passages []string) ([]float64, error)
}

// LexicalModel scores passages by cosine similarity of term-frequency
// vectors. It stands in for a learned cross-encoder when no model service
// is available; scores land in [0, 1].
type LexicalModel struct {
	name string
}

// NewLexicalModel creates a lexical scoring model. An empty name defaults
// to "lexical-tf-cosine".
func NewLexicalModel(name string) *LexicalModel {
	if name == "" {
		name = "lexical-tf-cosine"
	}
	return &LexicalModel{name: name}
}

func (m *LexicalModel) ModelName() string {
	return m.name
}

func (m *LexicalModel) ComputeScore(query, passage string) (float64, error) {
	return cosineSimilarity(termFrequency(tokenize(query)), termFrequency(tokenize(passage))), nil
}

func (m *LexicalModel) ComputeScoresBatch(query string, passages []string) ([]float64, error) {
	queryTF := termFrequency(tokenize(query))
	scores := make([]float64, len(passages))
	for i, passage := range passages {
		scores[i] = cosineSimilarity(queryTF, termFrequency(tokenize(passage)))
	}
	return scores, nil
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "its": true, "what": true, "which": true,
}

// tokenize lowercases text, splits on non-alphanumeric runes, and drops
// stop words and tokens shorter than three characters.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	tokens := words[:0]
	for _, w := range words {
		if len(w) > 2 && !stopWords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func termFrequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

func cosineSimilarity(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, av := range a {
		dot += float64(av) * float64(b[term])
		normA += float64(av) * float64(av)
	}
	for _, bv := range b {
		normB += float64(bv) * float64(bv)
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
