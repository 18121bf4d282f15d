package style

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/facts"
)

func confidences(values map[string]float64) map[string]facts.Result {
	out := make(map[string]facts.Result, len(Order))
	for _, name := range Order {
		out[name] = facts.Result{Name: name, Confidence: 0.1, Description: name + " description."}
	}
	for name, c := range values {
		r := out[name]
		r.Confidence = c
		out[name] = r
	}
	return out
}

func TestSelectPrimary(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]float64
		want   string
	}{
		{"highest wins", map[string]float64{LayeredName: 0.7, HexagonalName: 0.5}, LayeredName},
		{"all below threshold", map[string]float64{HexagonalName: 0.39}, Unknown},
		{"threshold is inclusive", map[string]float64{EventDrivenName: 0.4}, EventDrivenName},
		{"tie goes to declaration order", map[string]float64{CleanName: 0.6, LayeredName: 0.6}, LayeredName},
		{"tie between later styles", map[string]float64{EventDrivenName: 0.6, HexagonalName: 0.6}, HexagonalName},
		{"later style strictly higher", map[string]float64{LayeredName: 0.6, MicroservicesName: 0.61}, MicroservicesName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPrimary(confidences(tt.values)))
		})
	}
}

func TestSummarize_PrimaryWithSecondary(t *testing.T) {
	results := confidences(map[string]float64{LayeredName: 0.7, HexagonalName: 0.5})
	r := results[LayeredName]
	r.Recommendations = []string{"First.", "Second.", "Third."}
	results[LayeredName] = r

	primary := SelectPrimary(results)
	summary := Summarize(primary, results)

	assert.Equal(t, LayeredName, primary)
	assert.Equal(t, "layered description. Additionally, shows elements of: hexagonal. First. Second.", summary)
}

func TestSummarize_NoClearStyle(t *testing.T) {
	results := confidences(map[string]float64{
		LayeredName:       0.2,
		HexagonalName:     0.35,
		CleanName:         0.3,
		MicroservicesName: 0.1,
		EventDrivenName:   0.0,
	})
	primary := SelectPrimary(results)
	summary := Summarize(primary, results)

	assert.Equal(t, Unknown, primary)
	assert.True(t, strings.HasPrefix(summary, NoClearStyle))
	assert.Contains(t, summary, "Additionally, shows elements of: hexagonal, clean_architecture.")
}

func TestSecondary_Ordering(t *testing.T) {
	results := confidences(map[string]float64{
		LayeredName:     0.7,
		CleanName:       0.5,
		HexagonalName:   0.5,
		EventDrivenName: 0.6,
	})
	assert.Equal(t, []string{EventDrivenName, HexagonalName, CleanName}, Secondary(LayeredName, results))
}

func TestAggregator_Analyze(t *testing.T) {
	ff := append(layeredCorpus(), eventCorpus()...)
	agg := NewAggregator(classify.NewRegistry(), nil)

	report, err := agg.Analyze(context.Background(), ff, intentContext(0.5, 0.5))
	require.NoError(t, err)

	require.Len(t, report.ByName, len(Order))
	for _, name := range Order {
		r, ok := report.ByName[name]
		require.True(t, ok, name)
		assert.Equal(t, name, r.Name)
	}
	assert.Equal(t, SelectPrimary(report.ByName), report.Primary)
	assert.NotEmpty(t, report.Summary)

	again, err := agg.Analyze(context.Background(), ff, intentContext(0.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, report, again)
}
