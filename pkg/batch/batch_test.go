package batch_test

import (
	"fmt"
	"testing"

	"github.com/soundprediction/go-reranker/pkg/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPairs(t *testing.T) {
	pairs := []batch.Pair{
		{Query: "a", Passage: "p0"},
		{Query: "b", Passage: "p1"},
		{Query: "a", Passage: "p2"},
		{Query: "c", Passage: "p3"},
		{Query: "b", Passage: "p4"},
	}

	groups := batch.GroupPairs(pairs)

	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0].Query)
	assert.Equal(t, []int{0, 2}, groups[0].Indices)
	assert.Equal(t, []string{"p0", "p2"}, groups[0].Passages)
	assert.Equal(t, "b", groups[1].Query)
	assert.Equal(t, []int{1, 4}, groups[1].Indices)
	assert.Equal(t, "c", groups[2].Query)
	assert.Equal(t, []string{"p3"}, groups[2].Passages)
}

func TestGroupPairsEmpty(t *testing.T) {
	assert.Empty(t, batch.GroupPairs(nil))
}

// Grouping then scattering must reproduce positional order for any mix of
// queries: K pairs in, K scores out, result[i] belonging to pair[i].
func TestScatterPreservesOrder(t *testing.T) {
	const k = 25
	pairs := make([]batch.Pair, k)
	for i := range pairs {
		pairs[i] = batch.Pair{
			Query:   fmt.Sprintf("q%d", i%4),
			Passage: fmt.Sprintf("p%d", i),
		}
	}

	groups := batch.GroupPairs(pairs)
	out := make([]float64, len(pairs))

	// Score each passage as its original index so the writeback is checkable.
	for _, g := range groups {
		scores := make([]float64, len(g.Indices))
		for i, idx := range g.Indices {
			scores[i] = float64(idx)
		}
		g.Scatter(scores, out)
	}

	for i, v := range out {
		assert.Equal(t, float64(i), v)
	}
}
