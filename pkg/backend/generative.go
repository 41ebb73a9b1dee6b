package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/soundprediction/go-reranker/pkg/llm"
	"github.com/soundprediction/go-reranker/pkg/scoreparse"
)

// GenerativeBackend scores passages through a text-completion service. One
// completion request serves all passages for a query by listing them in the
// prompt; the raw response is routed through scoreparse.
//
// This variant is markedly noisier than the others: completion text that
// yields too few numbers never fails the call. Best-effort fallback scores
// are returned instead and the shortfall is logged and counted.
type GenerativeBackend struct {
	client   llm.Client
	model    string
	logger   *slog.Logger
	degraded atomic.Int64
}

const scoringSystemPrompt = `You are a relevance scoring engine. Given a query and a numbered list of passages, score how relevant each passage is to the query. Respond with a JSON array of numeric scores between 0 and 1, one per passage, in passage order. Output only the array.`

// NewGenerativeBackend wraps a completion client as a scoring backend.
func NewGenerativeBackend(client llm.Client, model string, logger *slog.Logger) *GenerativeBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerativeBackend{
		client: client,
		model:  model,
		logger: logger,
	}
}

func (b *GenerativeBackend) Score(ctx context.Context, query, passage string) (float64, error) {
	scores, err := b.ScoreBatch(ctx, query, []string{passage})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

func (b *GenerativeBackend) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	resp, err := b.client.Chat(ctx, []llm.Message{
		llm.NewSystemMessage(scoringSystemPrompt),
		llm.NewUserMessage(buildScoringPrompt(query, passages)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(KindTimeout, b.Name(), err)
		}
		return nil, NewError(KindUnavailable, b.Name(), err)
	}

	scores, degraded := scoreparse.Extract(resp.Content, len(passages))
	if degraded {
		b.degraded.Add(1)
		b.logger.Warn("completion yielded fewer scores than passages, padding with fallback",
			"backend", b.Name(),
			"passages", len(passages),
			"completion_bytes", len(resp.Content))
	}
	return scores, nil
}

// DegradedCount reports how many scoring calls needed fallback scores. It
// is a quality signal, not an error count: degraded calls still succeed.
func (b *GenerativeBackend) DegradedCount() int64 {
	return b.degraded.Load()
}

// Probe lists the completion service's models; reachability implies
// readiness.
func (b *GenerativeBackend) Probe(ctx context.Context) (ProbeResult, error) {
	models, err := b.client.Models(ctx)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{Ready: true, Models: models}, nil
}

func (b *GenerativeBackend) Name() string {
	return string(ProviderGenerative)
}

func (b *GenerativeBackend) Close() error {
	return b.client.Close()
}

func buildScoringPrompt(query string, passages []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for i, p := range passages {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}
	fmt.Fprintf(&sb, "\nScore all %d passages.", len(passages))
	return sb.String()
}
