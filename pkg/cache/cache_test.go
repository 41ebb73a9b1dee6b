package cache_test

import (
	"testing"
	"time"

	"github.com/soundprediction/go-reranker/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerCacheRoundTrip(t *testing.T) {
	c, err := cache.NewBadgerCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	key := cache.ScoreKey("direct", "m", "q", []string{"p1", "p2"})
	value, err := cache.EncodeScores([]float64{0.9, -0.3})
	require.NoError(t, err)

	require.NoError(t, c.Set(key, value, time.Minute))

	got, err := c.Get(key)
	require.NoError(t, err)
	scores, err := cache.DecodeScores(got)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, -0.3}, scores)

	require.NoError(t, c.Delete(key))
	_, err = c.Get(key)
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}

func TestScoreKeyDistinguishesInputs(t *testing.T) {
	base := cache.ScoreKey("direct", "m", "q", []string{"p1", "p2"})

	assert.NotEqual(t, base, cache.ScoreKey("remote", "m", "q", []string{"p1", "p2"}))
	assert.NotEqual(t, base, cache.ScoreKey("direct", "m2", "q", []string{"p1", "p2"}))
	assert.NotEqual(t, base, cache.ScoreKey("direct", "m", "q2", []string{"p1", "p2"}))
	assert.NotEqual(t, base, cache.ScoreKey("direct", "m", "q", []string{"p2", "p1"}))
	assert.Equal(t, base, cache.ScoreKey("direct", "m", "q", []string{"p1", "p2"}))
}
