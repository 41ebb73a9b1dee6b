// Package reranker scores the relevance of passages against queries using
// one of several interchangeable scoring backends: an in-process model, a
// remote HTTP reranking service, or a generative completion service whose
// free-text output is parsed into scores.
//
// The Service is the process-wide entry point. It validates requests,
// groups batch pairs by query, dispatches groups to the configured
// backend, optionally normalizes raw scores with a sigmoid, and reassembles
// results in the caller's required order. Readiness is gated by a
// health.Monitor: requests made before the backend is ready are rejected
// uniformly regardless of variant.
package reranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/batch"
	"github.com/soundprediction/go-reranker/pkg/cache"
	"github.com/soundprediction/go-reranker/pkg/health"
)

// Version is the service API version.
const Version = "2.0.0"

// Request size limits, matching the wire contract.
const (
	MaxQueryLength   = 10000
	MaxPassageLength = 10000
	MaxBatchSize     = 100
)

// TextPair is a single query/passage scoring request.
type TextPair = batch.Pair

// ScoreResult is the outcome of scoring one passage. RawScore is the
// backend's unbounded score; NormalizedScore is its sigmoid mapping into
// [0, 1], present when normalization was requested.
type ScoreResult struct {
	Passage         string   `json:"passage"`
	RawScore        float64  `json:"raw_score"`
	NormalizedScore *float64 `json:"normalized_score,omitempty"`
}

// Score returns the normalized score when present, the raw score
// otherwise.
func (r ScoreResult) Score() float64 {
	if r.NormalizedScore != nil {
		return *r.NormalizedScore
	}
	return r.RawScore
}

// RankedPassage pairs a passage with its effective score for ranked-mode
// output.
type RankedPassage struct {
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Config holds service-level scoring behavior.
type Config struct {
	// Normalize applies sigmoid normalization unless a request opts out.
	Normalize bool
	// Timeout bounds one backend dispatch. Zero means 30s.
	Timeout time.Duration
	// MaxConcurrency limits concurrent per-query group dispatches within
	// one batch request. Zero means 4.
	MaxConcurrency int
	// CacheTTL is the lifetime of cached score vectors when a cache is
	// attached. Zero means one hour.
	CacheTTL time.Duration
}

// ScoreOptions carries per-request overrides. A nil *ScoreOptions means
// service defaults.
type ScoreOptions struct {
	// Normalize overrides the service-wide normalization default.
	Normalize *bool
}

// Service orchestrates scoring across the configured backend. Construct
// one at process start and share it; all methods are safe for concurrent
// use.
type Service struct {
	backend backend.Backend
	monitor *health.Monitor
	cache   cache.Cache
	logger  *slog.Logger
	cfg     Config
}

// New creates a scoring service. monitor may be nil, in which case the
// backend is assumed ready (useful for tests and one-shot CLI use).
func New(b backend.Backend, monitor *health.Monitor, cfg Config, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: b,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
	}
}

// SetCache attaches a raw-score cache. Call before serving requests.
func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

// ScoreOne scores a single query/passage pair.
func (s *Service) ScoreOne(ctx context.Context, query, passage string, opts *ScoreOptions) (*ScoreResult, error) {
	if err := validateText("query", query, MaxQueryLength); err != nil {
		return nil, err
	}
	if err := validateText("passage", passage, MaxPassageLength); err != nil {
		return nil, err
	}
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	raw, err := s.scoreGroup(ctx, query, []string{passage})
	if err != nil {
		return nil, err
	}

	result := s.assemble([]string{passage}, raw, s.normalizeEnabled(opts))
	return &result[0], nil
}

// ScoreMany scores up to MaxBatchSize passages against one query. The
// returned slice matches passages in length and order.
func (s *Service) ScoreMany(ctx context.Context, query string, passages []string, opts *ScoreOptions) ([]ScoreResult, error) {
	if err := validateText("query", query, MaxQueryLength); err != nil {
		return nil, err
	}
	if err := validatePassages(passages); err != nil {
		return nil, err
	}
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	raw, err := s.scoreGroup(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	return s.assemble(passages, raw, s.normalizeEnabled(opts)), nil
}

// ScoreBatchPairs scores up to MaxBatchSize independent pairs in
// positional mode: for K pairs the result has exactly K entries and
// result[i] corresponds to pairs[i], regardless of how many distinct
// queries appear. Pairs sharing a query are scored in one backend call;
// groups may be dispatched concurrently.
func (s *Service) ScoreBatchPairs(ctx context.Context, pairs []TextPair, opts *ScoreOptions) ([]ScoreResult, error) {
	if len(pairs) == 0 || len(pairs) > MaxBatchSize {
		return nil, &ValidationError{Field: "pairs", Reason: fmt.Sprintf("must contain 1 to %d entries", MaxBatchSize)}
	}
	for i, p := range pairs {
		if err := validateText(fmt.Sprintf("pairs[%d].query", i), p.Query, MaxQueryLength); err != nil {
			return nil, err
		}
		if err := validateText(fmt.Sprintf("pairs[%d].passage", i), p.Passage, MaxPassageLength); err != nil {
			return nil, err
		}
	}
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	groups := batch.GroupPairs(pairs)
	raw := make([]float64, len(pairs))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.MaxConcurrency)
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			scores, err := s.scoreGroup(gctx, g.Query, g.Passages)
			if err != nil {
				return err
			}
			g.Scatter(scores, raw)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	passages := make([]string, len(pairs))
	for i, p := range pairs {
		passages[i] = p.Passage
	}
	return s.assemble(passages, raw, s.normalizeEnabled(opts)), nil
}

// RankPassages scores passages against a query and returns them sorted by
// score descending. Passages with equal scores keep their input order.
func (s *Service) RankPassages(ctx context.Context, query string, passages []string, opts *ScoreOptions) ([]RankedPassage, error) {
	results, err := s.ScoreMany(ctx, query, passages, opts)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedPassage, len(results))
	for i, r := range results {
		ranked[i] = RankedPassage{Passage: r.Passage, Score: r.Score()}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// IsReady reports whether scoring requests can be served.
func (s *Service) IsReady() bool {
	if s.monitor == nil {
		return true
	}
	return s.monitor.IsReady()
}

// Health returns the readiness monitor's last recorded backend health.
func (s *Service) Health() health.BackendHealth {
	if s.monitor == nil {
		return health.BackendHealth{Ready: true}
	}
	return s.monitor.Health()
}

// BackendName identifies the active backend variant.
func (s *Service) BackendName() string {
	return s.backend.Name()
}

// DegradedParses reports how many generative scoring calls fell back to
// default scores. Zero for non-generative backends.
func (s *Service) DegradedParses() int64 {
	if g, ok := s.backend.(*backend.GenerativeBackend); ok {
		return g.DegradedCount()
	}
	return 0
}

// Close releases the backend and any attached cache.
func (s *Service) Close() error {
	var errs []error
	if err := s.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// scoreGroup computes raw scores for one query's passages, consulting the
// cache when attached and applying the per-dispatch timeout.
func (s *Service) scoreGroup(ctx context.Context, query string, passages []string) ([]float64, error) {
	var key string
	if s.cache != nil {
		key = cache.ScoreKey(s.backend.Name(), s.Health().ModelName, query, passages)
		if data, err := s.cache.Get(key); err == nil {
			if scores, err := cache.DecodeScores(data); err == nil && len(scores) == len(passages) {
				return scores, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	scores, err := s.backend.ScoreBatch(ctx, query, passages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && backend.KindOf(err) == "" {
			return nil, backend.NewError(backend.KindTimeout, s.backend.Name(), err)
		}
		return nil, err
	}

	if s.cache != nil {
		if data, err := cache.EncodeScores(scores); err == nil {
			if err := s.cache.Set(key, data, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("failed to cache scores", "error", err)
			}
		}
	}
	return scores, nil
}

func (s *Service) assemble(passages []string, raw []float64, normalize bool) []ScoreResult {
	results := make([]ScoreResult, len(passages))
	for i, p := range passages {
		results[i] = ScoreResult{Passage: p, RawScore: raw[i]}
		if normalize {
			n := Sigmoid(raw[i])
			results[i].NormalizedScore = &n
		}
	}
	return results
}

func (s *Service) normalizeEnabled(opts *ScoreOptions) bool {
	if opts != nil && opts.Normalize != nil {
		return *opts.Normalize
	}
	return s.cfg.Normalize
}

func (s *Service) ensureReady() error {
	if s.IsReady() {
		return nil
	}
	return backend.NewError(backend.KindUnavailable, s.backend.Name(),
		errors.New("backend is not ready"))
}
