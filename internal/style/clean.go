package style

import (
	"fmt"
	"log/slog"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
	"github.com/dejo1307/archstyle/internal/intent"
)

// CleanName is the result key of the clean architecture analyzer.
const CleanName = "clean_architecture"

// cleanCircle numbers the circles from the inside out. Outer circles may depend on inner
// ones: an edge is correct when the source value is greater.
var cleanCircle = map[string]int{
	classify.CleanEntity:    1,
	classify.CleanUseCase:   2,
	classify.CleanAdapter:   3,
	classify.CleanFramework: 4,
}

// Clean scores the clean architecture dependency rule.
type Clean struct {
	detector.Base
	dip float64
}

// NewClean creates an analyzer for one run with the intent report as context.
func NewClean(reg *classify.Registry, intents facts.IntentReport, logger *slog.Logger) *Clean {
	return &Clean{
		Base: detector.NewBase(reg.Table(classify.TableClean), graph.WithLogger(logger)),
		dip:  intents.Results[intent.DependencyInversionName].Confidence,
	}
}

func (d *Clean) Name() string {
	return CleanName
}

func (d *Clean) Ingest(f *facts.ComponentFact) error {
	_, err := d.Register(f, d.Classify(f))
	return err
}

func (d *Clean) direction() direction {
	var s direction
	for _, e := range d.Graph.Edges() {
		src, okSrc := cleanCircle[d.Graph.Label(e.From)]
		dst, okDst := cleanCircle[d.Graph.Label(e.To)]
		if !okSrc || !okDst || src == dst {
			continue
		}
		s.cross++
		if src > dst {
			s.correct++
		} else {
			s.violations++
		}
	}
	return s
}

// entityIndependence is the share of entities with no dependency on an outer circle.
func (d *Clean) entityIndependence() (float64, int) {
	entities, independent := 0, 0
	for _, n := range d.Graph.Components() {
		if n.Label != classify.CleanEntity {
			continue
		}
		entities++
		clean := true
		for _, to := range d.Graph.Out(n.ID) {
			if cleanCircle[d.Graph.Label(to)] > cleanCircle[classify.CleanEntity] {
				clean = false
				break
			}
		}
		if clean {
			independent++
		}
	}
	return detector.Ratio(independent, entities, 0), entities
}

func (d *Clean) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	counts := d.Graph.LabelCounts()
	present, classified := 0, 0
	for label, c := range counts {
		if _, ok := cleanCircle[label]; ok {
			present++
			classified += c
		}
	}
	dir := d.direction()
	independence, entities := d.entityIndependence()

	coverage := float64(present) / float64(len(cleanCircle))
	compliance := detector.Ratio(dir.correct, dir.correct+dir.violations, 0.5)
	violationRatio := detector.Ratio(dir.violations, dir.correct+dir.violations, 0)
	classifiedRatio := detector.Ratio(classified, len(comps), 0)

	confidence := detector.Clamp(0.3*coverage + 0.35*compliance + 0.15*independence +
		0.1*classifiedRatio + 0.1*d.dip - 0.15*violationRatio)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["circle_coverage"] = coverage
	metrics["compliance"] = compliance
	metrics["violations"] = float64(dir.violations)
	metrics["violation_ratio"] = violationRatio
	metrics["entity_independence"] = independence
	metrics["classified_ratio"] = classifiedRatio
	metrics["dependency_inversion"] = d.dip

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Description: detector.Describe("clean architecture", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: entities == 0, Text: "Extract enterprise business rules into entity types with no outward dependencies."},
			detector.Advice{When: counts[classify.CleanUseCase] == 0, Text: "Capture application behaviour in use case interactors."},
			detector.Advice{When: dir.violations > 0, Text: fmt.Sprintf("Remove %d dependencies from inner circles to outer circles.", dir.violations)},
			detector.Advice{When: entities > 0 && independence < 1, Text: "Keep entities independent of outer circles."},
			detector.Advice{When: d.dip < 0.5, Text: "Cross circle boundaries through interfaces defined by the inner circle."},
		),
	}
}
