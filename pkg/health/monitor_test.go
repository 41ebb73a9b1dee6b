package health_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeBackend scripts a sequence of probe outcomes and records scoring
// calls.
type probeBackend struct {
	results    []probeOutcome
	probeCalls int
	scoreCalls int
	scoreErr   error
}

type probeOutcome struct {
	result backend.ProbeResult
	err    error
}

func (b *probeBackend) Probe(ctx context.Context) (backend.ProbeResult, error) {
	i := b.probeCalls
	b.probeCalls++
	if i >= len(b.results) {
		i = len(b.results) - 1
	}
	return b.results[i].result, b.results[i].err
}

func (b *probeBackend) Score(ctx context.Context, query, passage string) (float64, error) {
	b.scoreCalls++
	return 0, b.scoreErr
}

func (b *probeBackend) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	return make([]float64, len(passages)), nil
}

func (b *probeBackend) Name() string { return "probe-test" }
func (b *probeBackend) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(attempts int, warmup bool) health.Config {
	return health.Config{
		Interval:    time.Millisecond,
		MaxAttempts: attempts,
		Warmup:      warmup,
	}
}

func TestMonitorReadyOnExactModelMatch(t *testing.T) {
	b := &probeBackend{results: []probeOutcome{
		{result: backend.ProbeResult{Ready: true, Models: []string{"bge-reranker-v2-m3"}}},
	}}
	m := health.NewMonitor(b, "bge-reranker-v2-m3", fastConfig(5, false), quietLogger())

	state := m.WaitUntilReady(context.Background())

	assert.Equal(t, health.StateReady, state)
	assert.True(t, m.IsReady())
	h := m.Health()
	assert.True(t, h.Ready)
	assert.Equal(t, "bge-reranker-v2-m3", h.ModelName)
	assert.False(t, h.LastCheckedAt.IsZero())
}

func TestMonitorMatchesTaggedModelName(t *testing.T) {
	// Configured with a tag, backend reports a differently tagged variant
	// of the same base name.
	b := &probeBackend{results: []probeOutcome{
		{result: backend.ProbeResult{Ready: true, Models: []string{"llama3:8b-instruct"}}},
	}}
	m := health.NewMonitor(b, "llama3:latest", fastConfig(5, false), quietLogger())

	assert.Equal(t, health.StateReady, m.WaitUntilReady(context.Background()))
}

func TestMonitorNotReadyWhenModelMissing(t *testing.T) {
	b := &probeBackend{results: []probeOutcome{
		{result: backend.ProbeResult{Ready: true, Models: []string{"some-other-model"}}},
	}}
	m := health.NewMonitor(b, "bge-reranker-v2-m3", fastConfig(3, false), quietLogger())

	state := m.WaitUntilReady(context.Background())

	assert.Equal(t, health.StateFailed, state)
	assert.False(t, m.IsReady())
	assert.Equal(t, 3, b.probeCalls)
}

func TestMonitorFailedIsTerminal(t *testing.T) {
	b := &probeBackend{results: []probeOutcome{
		{err: errors.New("connection refused")},
	}}
	m := health.NewMonitor(b, "m", fastConfig(2, false), quietLogger())

	require.Equal(t, health.StateFailed, m.WaitUntilReady(context.Background()))
	calls := b.probeCalls

	// A second wait must not poll again.
	assert.Equal(t, health.StateFailed, m.WaitUntilReady(context.Background()))
	assert.Equal(t, calls, b.probeCalls)
	assert.False(t, m.IsReady())
}

func TestMonitorRecoversAfterInitialFailures(t *testing.T) {
	b := &probeBackend{results: []probeOutcome{
		{err: errors.New("connection refused")},
		{result: backend.ProbeResult{Ready: false}},
		{result: backend.ProbeResult{Ready: true, Models: []string{"m"}}},
	}}
	m := health.NewMonitor(b, "m", fastConfig(10, false), quietLogger())

	assert.Equal(t, health.StateReady, m.WaitUntilReady(context.Background()))
	assert.Equal(t, 3, b.probeCalls)
}

func TestMonitorWarmupFailureKeepsReady(t *testing.T) {
	b := &probeBackend{
		results: []probeOutcome{
			{result: backend.ProbeResult{Ready: true, Models: []string{"m"}}},
		},
		scoreErr: errors.New("model still loading"),
	}
	m := health.NewMonitor(b, "m", fastConfig(5, true), quietLogger())

	assert.Equal(t, health.StateReady, m.WaitUntilReady(context.Background()))
	assert.Equal(t, 1, b.scoreCalls)
	assert.True(t, m.IsReady())
}

func TestMonitorInitialState(t *testing.T) {
	b := &probeBackend{results: []probeOutcome{{}}}
	m := health.NewMonitor(b, "m", health.DefaultConfig(), quietLogger())

	assert.Equal(t, health.StateNotChecked, m.State())
	assert.False(t, m.IsReady())
}
