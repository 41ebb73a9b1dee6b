package scoreparse_test

import (
	"testing"

	"github.com/soundprediction/go-reranker/pkg/scoreparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		n            int
		want         []float64
		wantDegraded bool
	}{
		{
			name: "enumerated scores",
			text: "Passage 1: 0.83, Passage 2: -1.2",
			n:    2,
			want: []float64{0.83, -1.2},
		},
		{
			name: "json array",
			text: "Here are the scores: [0.9, 0.2, 0.7]",
			n:    3,
			want: []float64{0.9, 0.2, 0.7},
		},
		{
			name: "malformed json array is repaired",
			text: "[0.9, 0.2, 0.7,]",
			n:    3,
			want: []float64{0.9, 0.2, 0.7},
		},
		{
			name: "plain numbers in prose",
			text: "I would rate these 0.5 and then -2",
			n:    2,
			want: []float64{0.5, -2},
		},
		{
			name:         "too few numbers pads the tail",
			text:         "The only relevant passage scores 0.7",
			n:            3,
			want:         []float64{0.7, 0.1, 0.1},
			wantDegraded: true,
		},
		{
			name:         "no numbers with affirming keyword",
			text:         "This passage is clearly relevant to the query.",
			n:            1,
			want:         []float64{0.5},
			wantDegraded: true,
		},
		{
			name:         "no numbers no keyword",
			text:         "I cannot determine this.",
			n:            1,
			want:         []float64{0.1},
			wantDegraded: true,
		},
		{
			name:         "empty text",
			text:         "",
			n:            2,
			want:         []float64{0.1, 0.1},
			wantDegraded: true,
		},
		{
			name: "extra numbers are truncated",
			text: "0.1 0.2 0.3 0.4",
			n:    2,
			want: []float64{0.1, 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, degraded := scoreparse.Extract(tt.text, tt.n)

			require.Len(t, scores, tt.n)
			assert.Equal(t, tt.want, scores)
			assert.Equal(t, tt.wantDegraded, degraded)
		})
	}
}

func TestExtractZeroCount(t *testing.T) {
	scores, degraded := scoreparse.Extract("0.5", 0)
	assert.Nil(t, scores)
	assert.False(t, degraded)
}
