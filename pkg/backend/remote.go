package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// RemoteBackend forwards scoring to an HTTP reranking service implementing
// the common rerank API shape (POST /rerank with model, query, documents;
// results carry index and relevance_score). Requests are routed through a
// circuit breaker; there is no per-request retry — startup-time retry is
// the readiness monitor's concern.
type RemoteBackend struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// RemoteConfig holds settings for the remote scoring service.
type RemoteConfig struct {
	Model   string
	BaseURL string
	APIKey  string

	// HTTPTimeout bounds a single round trip. The caller's context may
	// impose a tighter deadline.
	HTTPTimeout time.Duration
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      *int     `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
	Model   string         `json:"model"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	Document       string  `json:"document"`
	RelevanceScore float64 `json:"relevance_score"`
}

type remoteHealthResponse struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	ModelName   string   `json:"model_name"`
	Models      []string `json:"models"`
}

// NewRemoteBackend creates a client for an HTTP reranking service.
func NewRemoteBackend(cfg RemoteConfig) *RemoteBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &RemoteBackend{
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "remote-reranker",
		}),
	}
}

func (b *RemoteBackend) Score(ctx context.Context, query, passage string) (float64, error) {
	scores, err := b.ScoreBatch(ctx, query, []string{passage})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

func (b *RemoteBackend) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	resp, err := b.rerank(ctx, query, passages)
	if err != nil {
		return nil, err
	}

	// Services return results sorted by relevance; map back to input order
	// through the result index.
	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(passages) || seen[r.Index] {
			return nil, NewError(KindInference, b.Name(),
				fmt.Errorf("rerank response has invalid result index %d", r.Index))
		}
		scores[r.Index] = r.RelevanceScore
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, NewError(KindInference, b.Name(),
				fmt.Errorf("rerank response is missing a score for passage %d", i))
		}
	}
	return scores, nil
}

func (b *RemoteBackend) rerank(ctx context.Context, query string, passages []string) (*rerankResponse, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     b.model,
		Query:     query,
		Documents: passages,
	})
	if err != nil {
		return nil, NewError(KindInference, b.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.doRerank(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewError(KindUnavailable, b.Name(), err)
		}
		var be *Error
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, NewError(KindUnavailable, b.Name(), err)
	}
	return result.(*rerankResponse), nil
}

func (b *RemoteBackend) doRerank(ctx context.Context, body []byte) (*rerankResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindUnavailable, b.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(KindTimeout, b.Name(), err)
		}
		return nil, NewError(KindUnavailable, b.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindUnavailable, b.Name(), err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, NewError(KindUnavailable, b.Name(),
			fmt.Errorf("rerank request failed with status %d: %s", resp.StatusCode, respBody))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, NewError(KindInference, b.Name(),
			fmt.Errorf("rerank request failed with status %d: %s", resp.StatusCode, respBody))
	default:
		return nil, NewError(KindUnavailable, b.Name(),
			fmt.Errorf("rerank request failed with status %d: %s", resp.StatusCode, respBody))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewError(KindInference, b.Name(), fmt.Errorf("unmarshaling response: %w", err))
	}
	return &parsed, nil
}

// Probe checks the remote service's health endpoint and reports the models
// it claims to serve.
func (b *RemoteBackend) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return ProbeResult{}, err
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProbeResult{}, fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}

	var health remoteHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return ProbeResult{}, fmt.Errorf("decoding health response: %w", err)
	}

	models := health.Models
	if health.ModelName != "" {
		models = append(models, health.ModelName)
	}
	ready := health.ModelLoaded || health.Status == "healthy" || health.Status == "ok"
	return ProbeResult{Ready: ready, Models: models}, nil
}

func (b *RemoteBackend) Name() string {
	return string(ProviderRemote)
}

func (b *RemoteBackend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}
