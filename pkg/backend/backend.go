// Package backend defines the scoring backend capability and its three
// implementations: an in-process model, a remote HTTP reranking service,
// and a generative text-completion service repurposed for scoring.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/go-reranker/pkg/llm"
)

// Backend computes relevance scores for a query against passages. The
// variant is chosen once at startup from configuration; callers stay
// agnostic of its internals.
type Backend interface {
	// Score computes the relevance score for a single query/passage pair.
	Score(ctx context.Context, query, passage string) (float64, error)

	// ScoreBatch computes scores for all passages against one query. The
	// returned slice has the same length and order as passages.
	ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error)

	// Probe reports whether the backend can serve scoring requests and
	// which models it has available.
	Probe(ctx context.Context) (ProbeResult, error)

	// Name identifies the backend variant for logs and errors.
	Name() string

	// Close cleans up any resources held by the backend.
	Close() error
}

// ProbeResult is the outcome of one readiness probe.
type ProbeResult struct {
	Ready  bool
	Models []string
}

// Provider selects a backend variant.
type Provider string

const (
	// ProviderDirect scores with an in-process model.
	ProviderDirect Provider = "direct"
	// ProviderRemote forwards to an HTTP reranking service.
	ProviderRemote Provider = "remote"
	// ProviderGenerative scores through a text-completion service.
	ProviderGenerative Provider = "generative"
)

// Config holds settings shared by backend constructors.
type Config struct {
	Provider Provider `mapstructure:"provider"`
	Model    string   `mapstructure:"model"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
}

// New creates the backend variant named by cfg.Provider.
func New(cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Provider {
	case ProviderDirect:
		return NewDirectBackend(NewLexicalModel(cfg.Model)), nil

	case ProviderRemote:
		return NewRemoteBackend(RemoteConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		}), nil

	case ProviderGenerative:
		client, err := llm.NewOpenAICompatibleClient(cfg.BaseURL, cfg.APIKey, cfg.Model, llm.Config{})
		if err != nil {
			return nil, fmt.Errorf("creating completion client: %w", err)
		}
		return NewGenerativeBackend(client, cfg.Model, logger), nil

	default:
		return nil, fmt.Errorf("unsupported backend provider: %q", cfg.Provider)
	}
}
