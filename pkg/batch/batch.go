// Package batch groups flat (query, passage) pairs into per-query groups so
// a backend can score each query's passages in one call, and scatters group
// results back to their original positions.
package batch

// Pair is a single query/passage scoring request within a batch.
type Pair struct {
	Query   string `json:"query"`
	Passage string `json:"passage"`
}

// Group holds the passages of one distinct query together with the original
// batch indices they came from. Groups are transient: they exist for one
// dispatch and are discarded after scatter.
type Group struct {
	Query    string
	Indices  []int
	Passages []string
}

// GroupPairs partitions pairs by query, preserving first-seen query order
// and, within a group, the pairs' original order.
func GroupPairs(pairs []Pair) []Group {
	byQuery := make(map[string]int, len(pairs))
	groups := make([]Group, 0, len(pairs))

	for i, p := range pairs {
		gi, ok := byQuery[p.Query]
		if !ok {
			gi = len(groups)
			byQuery[p.Query] = gi
			groups = append(groups, Group{Query: p.Query})
		}
		groups[gi].Indices = append(groups[gi].Indices, i)
		groups[gi].Passages = append(groups[gi].Passages, p.Passage)
	}
	return groups
}

// Scatter writes a group's scores into out at the group's original indices.
// out must be pre-sized to the full batch length; results are written by
// index, never appended, so group completion order does not matter.
func (g Group) Scatter(scores []float64, out []float64) {
	for i, idx := range g.Indices {
		out[idx] = scores[i]
	}
}
