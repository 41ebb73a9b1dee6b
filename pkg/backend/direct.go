package backend

import (
	"context"
	"fmt"
	"sync"
)

// DirectBackend scores with a locally loaded model. The model is a single
// exclusively-owned resource: a mutex is held around each inference so the
// model is never invoked concurrently from two callers.
type DirectBackend struct {
	model Model
	mu    sync.Mutex
}

// NewDirectBackend wraps an in-process model.
func NewDirectBackend(model Model) *DirectBackend {
	return &DirectBackend{model: model}
}

func (b *DirectBackend) Score(ctx context.Context, query, passage string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewError(KindTimeout, b.Name(), err)
	}

	b.mu.Lock()
	score, err := b.model.ComputeScore(query, passage)
	b.mu.Unlock()
	if err != nil {
		return 0, NewError(KindInference, b.Name(), err)
	}
	return score, nil
}

func (b *DirectBackend) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTimeout, b.Name(), err)
	}

	b.mu.Lock()
	scores, err := b.model.ComputeScoresBatch(query, passages)
	b.mu.Unlock()
	if err != nil {
		return nil, NewError(KindInference, b.Name(), err)
	}
	if len(scores) != len(passages) {
		return nil, NewError(KindInference, b.Name(),
			fmt.Errorf("model returned %d scores for %d passages", len(scores), len(passages)))
	}
	return scores, nil
}

func (b *DirectBackend) Probe(ctx context.Context) (ProbeResult, error) {
	return ProbeResult{Ready: true, Models: []string{b.model.ModelName()}}, nil
}

func (b *DirectBackend) Name() string {
	return string(ProviderDirect)
}

func (b *DirectBackend) Close() error {
	return nil
}
