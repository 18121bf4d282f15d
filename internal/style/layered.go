// Package style implements the five architectural style analyzers and the aggregator that
// selects a primary style.
package style

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// LayeredName is the result key of the layered analyzer.
const LayeredName = "layered"

// layeredOrder ranks layers from the top of the stack down. Dependencies must point to a
// higher index.
var layeredOrder = map[string]int{
	classify.LayeredPresentation: 0,
	classify.LayeredBusiness:     1,
	classify.LayeredDataAccess:   2,
	classify.LayeredDomain:       3,
}

// Layered scores a classic n-tier layering.
type Layered struct {
	detector.Base
}

// NewLayered creates an analyzer for one run.
func NewLayered(reg *classify.Registry, logger *slog.Logger) *Layered {
	return &Layered{Base: detector.NewBase(reg.Table(classify.TableLayered), graph.WithLogger(logger))}
}

func (d *Layered) Name() string {
	return LayeredName
}

func (d *Layered) Ingest(f *facts.ComponentFact) error {
	_, err := d.Register(f, d.Classify(f))
	return err
}

// direction counts cross-label edges between ranked labels as correct or violating.
type direction struct {
	cross      int
	correct    int
	violations int
}

func (d *Layered) direction() direction {
	var s direction
	for _, e := range d.Graph.Edges() {
		srcLabel, dstLabel := d.Graph.Label(e.From), d.Graph.Label(e.To)
		src, okSrc := layeredOrder[srcLabel]
		dst, okDst := layeredOrder[dstLabel]
		if !okSrc || !okDst || srcLabel == dstLabel {
			continue
		}
		s.cross++
		if dst > src {
			s.correct++
		} else {
			s.violations++
		}
	}
	return s
}

func (d *Layered) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	counts := d.Graph.LabelCounts()
	classified := 0
	for _, c := range counts {
		classified += c
	}
	dir := d.direction()

	coverage := math.Min(1, float64(len(counts))/float64(len(layeredOrder)))
	classifiedRatio := detector.Ratio(classified, len(comps), 0)
	compliance := detector.Ratio(dir.correct, dir.cross, 0.5)
	violationRatio := detector.Ratio(dir.violations, dir.cross, 0)

	confidence := 0.35*coverage + 0.25*classifiedRatio + 0.4*compliance - 0.2*violationRatio
	if len(counts) < 2 {
		confidence /= 2
	}
	confidence = detector.Clamp(confidence)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["layer_coverage"] = coverage
	metrics["classified_ratio"] = classifiedRatio
	metrics["compliance"] = compliance
	metrics["violations"] = float64(dir.violations)
	metrics["violation_ratio"] = violationRatio
	for label, c := range counts {
		metrics["layer_"+label] = float64(c)
	}

	missingBusiness := counts[classify.LayeredPresentation] > 0 && counts[classify.LayeredDataAccess] > 0 &&
		counts[classify.LayeredBusiness] == 0

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Pattern:     layerList(counts),
		Description: detector.Describe("a layered architecture", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: len(counts) < 3, Text: "Introduce explicit presentation, business and data access layers."},
			detector.Advice{When: dir.violations > 0, Text: fmt.Sprintf("Remove %d dependencies that point from lower layers back to upper layers.", dir.violations)},
			detector.Advice{When: classifiedRatio < 0.5, Text: "Organize components into layer directories so their role is recognizable."},
			detector.Advice{When: missingBusiness, Text: "Add a business layer between presentation and data access."},
		),
	}
}

// layerList renders the present layers in stack order, e.g. "presentation>business>data_access".
func layerList(counts map[string]int) string {
	present := make([]string, 0, len(counts))
	for label := range counts {
		if _, ok := layeredOrder[label]; ok {
			present = append(present, label)
		}
	}
	sort.Slice(present, func(i, j int) bool { return layeredOrder[present[i]] < layeredOrder[present[j]] })
	return strings.Join(present, ">")
}
