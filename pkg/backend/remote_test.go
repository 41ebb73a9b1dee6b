package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soundprediction/go-reranker/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteBackendScoreBatchMapsIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Model     string   `json:"model"`
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-reranker-base", req.Model)
		assert.Len(t, req.Documents, 3)

		// Results sorted by relevance, not by input order.
		json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"results": []map[string]any{
				{"index": 2, "document": req.Documents[2], "relevance_score": 0.95},
				{"index": 0, "document": req.Documents[0], "relevance_score": 0.40},
				{"index": 1, "document": req.Documents[1], "relevance_score": -1.2},
			},
		})
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{Model: "bge-reranker-base", BaseURL: srv.URL})

	scores, err := b.ScoreBatch(context.Background(), "q", []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.40, -1.2, 0.95}, scores)
}

func TestRemoteBackendScoreSingle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 0, "document": "p", "relevance_score": -5.65},
			},
		})
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	score, err := b.Score(context.Background(), "q", "p")
	require.NoError(t, err)
	assert.Equal(t, -5.65, score)
}

func TestRemoteBackendMissingIndexIsInferenceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 0, "document": "a", "relevance_score": 0.4},
			},
		})
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	_, err := b.ScoreBatch(context.Background(), "q", []string{"a", "b"})
	assert.Equal(t, backend.KindInference, backend.KindOf(err))
}

func TestRemoteBackendStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind backend.Kind
	}{
		{name: "server error is inference failure", status: http.StatusInternalServerError, wantKind: backend.KindInference},
		{name: "model not loaded is unavailable", status: http.StatusServiceUnavailable, wantKind: backend.KindUnavailable},
		{name: "client error is unavailable", status: http.StatusNotFound, wantKind: backend.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})
			_, err := b.ScoreBatch(context.Background(), "q", []string{"p"})
			assert.Equal(t, tt.wantKind, backend.KindOf(err))
		})
	}
}

func TestRemoteBackendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	_, err := b.ScoreBatch(context.Background(), "q", []string{"p"})
	assert.Equal(t, backend.KindUnavailable, backend.KindOf(err))
}

func TestRemoteBackendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.ScoreBatch(ctx, "q", []string{"p"})
	assert.Equal(t, backend.KindTimeout, backend.KindOf(err))
}

func TestRemoteBackendProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "healthy",
			"model_loaded": true,
			"model_name":   "bge-reranker-v2-m3",
		})
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	result, err := b.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Ready)
	assert.Contains(t, result.Models, "bge-reranker-v2-m3")
}

func TestRemoteBackendProbeUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not initialized", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := backend.NewRemoteBackend(backend.RemoteConfig{BaseURL: srv.URL})

	_, err := b.Probe(context.Background())
	assert.Error(t, err)
}
