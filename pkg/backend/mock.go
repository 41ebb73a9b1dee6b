package backend

import "fmt"

// MockModel is a deterministic in-process model for tests. Scores come
// from a fixed passage→score table; unknown passages score Fallback.
type MockModel struct {
	Name     string
	Scores   map[string]float64
	Fallback float64
	Err      error

	// Calls counts inference invocations, single or batch.
	Calls int
}

func (m *MockModel) ModelName() string {
	if m.Name == "" {
		return "mock-model"
	}
	return m.Name
}

func (m *MockModel) ComputeScore(query, passage string) (float64, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.lookup(passage), nil
}

func (m *MockModel) ComputeScoresBatch(query string, passages []string) ([]float64, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	scores := make([]float64, len(passages))
	for i, p := range passages {
		scores[i] = m.lookup(p)
	}
	return scores, nil
}

func (m *MockModel) lookup(passage string) float64 {
	if s, ok := m.Scores[passage]; ok {
		return s
	}
	return m.Fallback
}

var _ Model = (*MockModel)(nil)

// String implements fmt.Stringer for test failure output.
func (m *MockModel) String() string {
	return fmt.Sprintf("MockModel(%s, %d calls)", m.ModelName(), m.Calls)
}
