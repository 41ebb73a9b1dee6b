package reranker

import "math"

// Sigmoid maps an unbounded raw score into [0, 1]. A non-finite outcome
// yields the neutral value 0.5 instead of propagating: this is the
// documented fallback, not an error path. Sigmoid is monotonic but not
// idempotent.
func Sigmoid(x float64) float64 {
	v := 1 / (1 + math.Exp(-x))
	if math.IsNaN(v) {
		return 0.5
	}
	return v
}
