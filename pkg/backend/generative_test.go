package backend_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/soundprediction/go-reranker/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM scripts completions and records the prompts it was sent.
type fakeLLM struct {
	completion string
	chatErr    error
	models     []string
	modelsErr  error
	prompts    []string
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.Response{Content: f.completion}, nil
}

func (f *fakeLLM) Models(ctx context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

func (f *fakeLLM) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerativeBackendScoreBatch(t *testing.T) {
	client := &fakeLLM{completion: "[0.9, 0.2, 0.7]"}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	scores, err := b.ScoreBatch(context.Background(), "q", []string{"p1", "p2", "p3"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.2, 0.7}, scores)
	assert.Zero(t, b.DegradedCount())
}

func TestGenerativeBackendPromptListsPassages(t *testing.T) {
	client := &fakeLLM{completion: "[0.5, 0.5]"}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	_, err := b.ScoreBatch(context.Background(), "what is go", []string{"first passage", "second passage"})
	require.NoError(t, err)

	require.Len(t, client.prompts, 2)
	user := client.prompts[1]
	assert.Contains(t, user, "what is go")
	assert.Contains(t, user, "1. first passage")
	assert.Contains(t, user, "2. second passage")
}

func TestGenerativeBackendDegradedParse(t *testing.T) {
	// Completion yields one number for three passages: no hard error,
	// tail padded with the fallback score, shortfall counted.
	client := &fakeLLM{completion: "The best passage scores 0.8, the rest are noise."}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	scores, err := b.ScoreBatch(context.Background(), "q", []string{"p1", "p2", "p3"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.1, 0.1}, scores)
	assert.Equal(t, int64(1), b.DegradedCount())
}

func TestGenerativeBackendKeywordFallback(t *testing.T) {
	client := &fakeLLM{completion: "This passage is relevant to the query."}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	score, err := b.Score(context.Background(), "q", "p")

	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
}

func TestGenerativeBackendChatFailure(t *testing.T) {
	client := &fakeLLM{chatErr: errors.New("connection refused")}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	_, err := b.ScoreBatch(context.Background(), "q", []string{"p"})
	assert.Equal(t, backend.KindUnavailable, backend.KindOf(err))
}

func TestGenerativeBackendProbe(t *testing.T) {
	client := &fakeLLM{models: []string{"llama3:8b", "mistral:7b"}}
	b := backend.NewGenerativeBackend(client, "llama3", testLogger())

	result, err := b.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Ready)
	assert.Equal(t, []string{"llama3:8b", "mistral:7b"}, result.Models)

	client.modelsErr = errors.New("service down")
	_, err = b.Probe(context.Background())
	assert.Error(t, err)
}
