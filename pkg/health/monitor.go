// Package health manages backend readiness: polling the backend's probe at
// startup until it reports ready and the expected model is available, and
// exposing the resulting state to the rest of the process.
package health

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/go-reranker/pkg/backend"
)

// State is the monitor's position in its lifecycle.
type State int

const (
	// StateNotChecked means polling has not started.
	StateNotChecked State = iota
	// StatePolling means the monitor is waiting for a successful probe.
	StatePolling
	// StateReady means the backend can serve scoring requests.
	StateReady
	// StateFailed means the attempt budget was exhausted. Terminal: the
	// monitor stops polling and IsReady stays false. The owning process
	// keeps running so operators can inspect logs and health endpoints.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotChecked:
		return "not_checked"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BackendHealth is the monitor's view of the backend, refreshed on each
// poll. The monitor is its only writer.
type BackendHealth struct {
	Ready         bool      `json:"ready"`
	ModelName     string    `json:"model_name"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// Config holds readiness polling settings.
type Config struct {
	// Interval between probe attempts.
	Interval time.Duration `mapstructure:"interval"`
	// MaxAttempts bounds the polling loop.
	MaxAttempts int `mapstructure:"attempts"`
	// Warmup runs one scoring call after the backend reports ready.
	// Warm-up failure is logged but does not revert readiness.
	Warmup bool `mapstructure:"warmup"`
}

// DefaultConfig returns the standard polling bounds: 2s spacing, 30
// attempts, warm-up enabled.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		MaxAttempts: 30,
		Warmup:      true,
	}
}

// Monitor polls a backend until it is ready to score or the attempt budget
// runs out.
type Monitor struct {
	backend backend.Backend
	model   string
	cfg     Config
	logger  *slog.Logger

	mu     sync.RWMutex
	state  State
	health BackendHealth
}

// NewMonitor creates a monitor for the given backend. model is the
// identifier expected to appear among the backend's reported models.
func NewMonitor(b backend.Backend, model string, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		backend: b,
		model:   model,
		cfg:     cfg,
		logger:  logger,
		state:   StateNotChecked,
		health:  BackendHealth{ModelName: model},
	}
}

// WaitUntilReady polls the backend probe until it reports ready with the
// expected model present, the attempt budget is exhausted, or ctx is done.
// It returns the final state. Failed is terminal: a later call returns
// immediately without polling.
func (m *Monitor) WaitUntilReady(ctx context.Context) State {
	m.mu.Lock()
	if m.state == StateReady || m.state == StateFailed {
		state := m.state
		m.mu.Unlock()
		return state
	}
	m.state = StatePolling
	m.mu.Unlock()

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		result, err := m.backend.Probe(ctx)
		now := time.Now()

		switch {
		case err != nil:
			m.logger.Warn("readiness probe failed",
				"backend", m.backend.Name(), "attempt", attempt, "error", err)
		case !result.Ready:
			m.logger.Info("backend not ready yet",
				"backend", m.backend.Name(), "attempt", attempt)
		case !modelAvailable(m.model, result.Models):
			m.logger.Warn("backend ready but expected model not reported",
				"backend", m.backend.Name(), "model", m.model, "reported", result.Models)
		default:
			m.setState(StateReady, BackendHealth{Ready: true, ModelName: m.model, LastCheckedAt: now})
			m.logger.Info("backend ready",
				"backend", m.backend.Name(), "model", m.model, "attempts", attempt)
			if m.cfg.Warmup {
				m.warmup(ctx)
			}
			return StateReady
		}

		m.setState(StatePolling, BackendHealth{ModelName: m.model, LastCheckedAt: now})

		if attempt == m.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			m.setState(StateFailed, BackendHealth{ModelName: m.model, LastCheckedAt: time.Now()})
			return StateFailed
		case <-time.After(m.cfg.Interval):
		}
	}

	m.setState(StateFailed, BackendHealth{ModelName: m.model, LastCheckedAt: time.Now()})
	m.logger.Error("backend did not become ready, scoring requests will be rejected",
		"backend", m.backend.Name(), "model", m.model, "attempts", m.cfg.MaxAttempts)
	return StateFailed
}

// warmup issues one throwaway scoring call so the first real request does
// not pay model cold-start cost.
func (m *Monitor) warmup(ctx context.Context) {
	if _, err := m.backend.Score(ctx, "warm up", "warm up passage"); err != nil {
		m.logger.Warn("warm-up scoring call failed",
			"backend", m.backend.Name(), "error", err)
	}
}

// IsReady reports whether the backend can serve scoring requests. After
// Failed it returns false without further polling.
func (m *Monitor) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

// State returns the monitor's current lifecycle state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Health returns a copy of the last recorded backend health.
func (m *Monitor) Health() BackendHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

func (m *Monitor) setState(state State, health BackendHealth) {
	m.mu.Lock()
	m.state = state
	m.health = health
	m.mu.Unlock()
}

// modelAvailable reports whether want matches one of the reported model
// names: exact, or prefix/substring against the base name with any version
// tag stripped. Backends such as Ollama report tagged names ("llama3:8b")
// even when configured with the bare base name.
func modelAvailable(want string, reported []string) bool {
	if want == "" {
		return true
	}
	base := want
	if i := strings.IndexByte(base, ':'); i > 0 {
		base = base[:i]
	}
	for _, name := range reported {
		if name == want || strings.HasPrefix(name, base) || strings.Contains(name, base) {
			return true
		}
	}
	return false
}
