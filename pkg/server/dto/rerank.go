// Package dto defines the request and response shapes of the rerank HTTP
// API.
package dto

// TextPair is one query/passage pair in a batch request.
type TextPair struct {
	Query   string `json:"query" binding:"required"`
	Passage string `json:"passage" binding:"required"`
}

// SingleRerankRequest scores one pair.
type SingleRerankRequest struct {
	Query     string `json:"query" binding:"required"`
	Passage   string `json:"passage" binding:"required"`
	Normalize *bool  `json:"normalize,omitempty"`
}

// SingleRerankResponse carries the score for one pair.
type SingleRerankResponse struct {
	Score         float64 `json:"score"`
	Normalized    bool    `json:"normalized"`
	QueryLength   int     `json:"query_length"`
	PassageLength int     `json:"passage_length"`
}

// BatchRerankRequest scores independent pairs in positional mode.
type BatchRerankRequest struct {
	Pairs     []TextPair `json:"pairs" binding:"required,min=1,max=100,dive"`
	Normalize *bool      `json:"normalize,omitempty"`
}

// BatchRerankResponse carries scores in input order.
type BatchRerankResponse struct {
	Scores     []float64 `json:"scores"`
	Normalized bool      `json:"normalized"`
	PairsCount int       `json:"pairs_count"`
}

// QueryRerankRequest scores passages against one query in ranked mode.
type QueryRerankRequest struct {
	Query     string   `json:"query" binding:"required"`
	Passages  []string `json:"passages" binding:"required,min=1,max=100"`
	Normalize *bool    `json:"normalize,omitempty"`
}

// RankedPassage is one entry of a ranked-mode response.
type RankedPassage struct {
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// QueryRerankResponse lists passages sorted by relevance descending.
type QueryRerankResponse struct {
	ReRanked []RankedPassage `json:"re_ranked"`
}

// HealthResponse reports backend readiness.
type HealthResponse struct {
	Status         string `json:"status"`
	ModelLoaded    bool   `json:"model_loaded"`
	ModelName      string `json:"model_name"`
	Backend        string `json:"backend"`
	Version        string `json:"version"`
	DegradedParses int64  `json:"degraded_parses,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
