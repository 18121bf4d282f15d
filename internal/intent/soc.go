// Package intent implements the three cross-cutting design intent analyzers and the
// aggregator that combines them.
package intent

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// SeparationOfConcernsName is the result key of the separation of concerns analyzer.
const SeparationOfConcernsName = "separation_of_concerns"

// SeparationOfConcernsExcellent is the confidence from which no summary advice is given.
const SeparationOfConcernsExcellent = 0.7

// Organization patterns reported in Result.Pattern.
const (
	PatternLayerBased  = "layer-based"
	PatternDomainBased = "domain-based"
	PatternUnknown     = "unknown"
)

// concernOrder is the canonical outer-to-inner layer order. A dependency from a higher
// index to a lower one is a violation.
var concernOrder = map[string]int{
	classify.LayerView:       0,
	classify.LayerController: 1,
	classify.LayerService:    2,
	classify.LayerRepository: 3,
	classify.LayerModel:      4,
}

// SeparationOfConcerns scores how clearly code is split into layers and business domains.
type SeparationOfConcerns struct {
	detector.Base
	domains  *classify.Table
	domainOf map[string]string
}

// NewSeparationOfConcerns creates an analyzer for one run.
func NewSeparationOfConcerns(reg *classify.Registry, logger *slog.Logger) *SeparationOfConcerns {
	return &SeparationOfConcerns{
		Base:     detector.NewBase(reg.Table(classify.TableConcernLayers), graph.WithLogger(logger)),
		domains:  reg.Table(classify.TableConcernDomains),
		domainOf: make(map[string]string),
	}
}

func (d *SeparationOfConcerns) Name() string {
	return SeparationOfConcernsName
}

// Ingest registers f under its layer and records its business domain.
func (d *SeparationOfConcerns) Ingest(f *facts.ComponentFact) error {
	if _, err := d.Register(f, d.Classify(f)); err != nil {
		return err
	}
	d.domainOf[f.Path] = d.domains.Classify(f.Path, f.Keywords())
	return nil
}

// layeringStats counts cross-layer edges between canonical layers and the violations among them.
type layeringStats struct {
	cross      int
	violations int
}

func (d *SeparationOfConcerns) layering() layeringStats {
	var s layeringStats
	for _, e := range d.Graph.Edges() {
		src, okSrc := concernOrder[d.Graph.Label(e.From)]
		dst, okDst := concernOrder[d.Graph.Label(e.To)]
		if !okSrc || !okDst || src == dst {
			continue
		}
		s.cross++
		if src > dst {
			s.violations++
		}
	}
	return s
}

func (d *SeparationOfConcerns) domainEdges() (internal, cross int) {
	for _, e := range d.Graph.Edges() {
		from, to := d.domainOf[e.From], d.domainOf[e.To]
		if from == "" || to == "" || from == classify.Unknown || to == classify.Unknown {
			continue
		}
		if from == to {
			internal++
		} else {
			cross++
		}
	}
	return internal, cross
}

func (d *SeparationOfConcerns) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	layerCounts := d.Graph.LabelCounts()
	lay := d.layering()
	cleanLayering := 1 - detector.Ratio(lay.violations, lay.cross, 0)
	layerScore := math.Min(1, float64(len(layerCounts))/5) * detector.Balance(layerCounts) * cleanLayering

	domainCounts := make(map[string]int)
	for _, n := range comps {
		if dom := d.domainOf[n.ID]; dom != "" && dom != classify.Unknown {
			domainCounts[dom]++
		}
	}
	internal, cross := d.domainEdges()
	isolation := detector.Ratio(internal, internal+cross, 1)
	domainScore := math.Min(1, float64(len(domainCounts))/5) * detector.Balance(domainCounts) * isolation

	confidence := detector.Clamp((layerScore + domainScore) / 2)

	pattern := PatternUnknown
	switch {
	case layerScore >= domainScore && layerScore >= 0.5:
		pattern = PatternLayerBased
	case domainScore > layerScore && domainScore >= 0.5:
		pattern = PatternDomainBased
	}

	metrics := detector.GraphMetrics(d.Graph)
	metrics["layer_score"] = layerScore
	metrics["domain_score"] = domainScore
	metrics["distinct_layers"] = float64(len(layerCounts))
	metrics["distinct_domains"] = float64(len(domainCounts))
	metrics["clean_layering"] = cleanLayering
	metrics["cross_layer_edges"] = float64(lay.cross)
	metrics["layer_violations"] = float64(lay.violations)
	metrics["domain_isolation"] = isolation

	desc := detector.Describe("separation of concerns", confidence)
	if pattern != PatternUnknown {
		desc += fmt.Sprintf(" The dominant organization is %s.", pattern)
	}

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Pattern:     pattern,
		Description: desc,
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: len(layerCounts) < 3, Text: "Introduce distinct layers such as controllers, services and repositories to separate responsibilities."},
			detector.Advice{When: lay.violations > 0, Text: fmt.Sprintf("Fix %d dependencies that point from inner layers back to outer layers.", lay.violations)},
			detector.Advice{When: len(domainCounts) < 2, Text: "Group code by business domain to make feature boundaries explicit."},
			detector.Advice{When: isolation < 0.7, Text: "Reduce cross-domain dependencies to improve domain isolation."},
		),
	}
}
