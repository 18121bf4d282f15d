package detector

import (
	"fmt"
	"math"

	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// NoComponents is the description of a detector that saw an empty corpus.
const NoComponents = "No components to analyze"

// RecommendBelow is the confidence from which recommendations are no longer emitted.
const RecommendBelow = 0.8

// Graph metric keys shared by every result.
const (
	MetricComponents       = "components"
	MetricEdges            = "edges"
	MetricCyclicComponents = "cyclic_components"
)

// Clamp limits v to [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Ratio returns num/den, or empty when den is zero.
func Ratio(num, den int, empty float64) float64 {
	if den == 0 {
		return empty
	}
	return float64(num) / float64(den)
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Flag converts a boolean indicator to 0 or 1.
func Flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Balance is 0.5 + 0.5*min/max over the non-zero counts, 0 when there are none.
func Balance(counts map[string]int) float64 {
	lo, hi := 0, 0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		if lo == 0 || c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	if hi == 0 {
		return 0
	}
	return 0.5 + 0.5*float64(lo)/float64(hi)
}

// Bucket names the confidence band used in descriptions.
func Bucket(confidence float64) string {
	switch {
	case confidence < 0.2:
		return "minimal"
	case confidence < 0.4:
		return "weak"
	case confidence < 0.6:
		return "moderate"
	case confidence < 0.8:
		return "good"
	default:
		return "strong"
	}
}

// Describe produces the standard one-line description for a subject.
func Describe(subject string, confidence float64) string {
	return fmt.Sprintf("Shows %s evidence of %s (confidence %.2f).", Bucket(confidence), subject, confidence)
}

// Advice is one rule-based recommendation.
type Advice struct {
	When bool
	Text string
}

// Recommend returns the texts whose condition holds, or nil once confidence reaches
// RecommendBelow.
func Recommend(confidence float64, advice ...Advice) []string {
	if confidence >= RecommendBelow {
		return nil
	}
	var out []string
	for _, a := range advice {
		if a.When {
			out = append(out, a.Text)
		}
	}
	return out
}

// GraphMetrics returns a metrics map seeded with the shared graph counts.
func GraphMetrics(g *graph.Graph) map[string]float64 {
	return map[string]float64{
		MetricComponents:       float64(len(g.Components())),
		MetricEdges:            float64(g.EdgeCount()),
		MetricCyclicComponents: float64(g.CyclicNodeCount()),
	}
}

// Empty is the result for a detector that saw no components.
func Empty(name string) facts.Result {
	return facts.Result{
		Name:       name,
		Confidence: 0,
		Metrics: map[string]float64{
			MetricComponents:       0,
			MetricEdges:            0,
			MetricCyclicComponents: 0,
		},
		Description: NoComponents,
	}
}
