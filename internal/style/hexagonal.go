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

// HexagonalName is the result key of the hexagonal analyzer.
const HexagonalName = "hexagonal"

var hexagonalRoles = []string{classify.HexDomain, classify.HexPort, classify.HexAdapter, classify.HexInfrastructure}

// Hexagonal scores a ports and adapters architecture. It rewards the intent scores for
// dependency inversion and information hiding.
type Hexagonal struct {
	detector.Base
	dip    float64
	hiding float64
}

// NewHexagonal creates an analyzer for one run with the intent report as context.
func NewHexagonal(reg *classify.Registry, intents facts.IntentReport, logger *slog.Logger) *Hexagonal {
	return &Hexagonal{
		Base:   detector.NewBase(reg.Table(classify.TableHexagonal), graph.WithLogger(logger)),
		dip:    intents.Results[intent.DependencyInversionName].Confidence,
		hiding: intents.Results[intent.InformationHidingName].Confidence,
	}
}

func (d *Hexagonal) Name() string {
	return HexagonalName
}

func (d *Hexagonal) Ingest(f *facts.ComponentFact) error {
	_, err := d.Register(f, d.Classify(f))
	return err
}

func (d *Hexagonal) direction() direction {
	var s direction
	for _, e := range d.Graph.Edges() {
		src, dst := d.Graph.Label(e.From), d.Graph.Label(e.To)
		if src == classify.Unknown || dst == classify.Unknown || src == dst {
			continue
		}
		s.cross++
		switch {
		case dst == classify.HexPort && (src == classify.HexAdapter || src == classify.HexDomain):
			s.correct++
		case src == classify.HexAdapter && dst == classify.HexDomain:
			s.violations++
		}
	}
	return s
}

func (d *Hexagonal) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	counts := d.Graph.LabelCounts()
	present := 0
	for _, role := range hexagonalRoles {
		if counts[role] > 0 {
			present++
		}
	}
	hasPorts := counts[classify.HexPort] > 0
	hasAdapters := counts[classify.HexAdapter] > 0
	dir := d.direction()

	roleCoverage := float64(present) / float64(len(hexagonalRoles))
	portsAndAdapters := detector.Flag(hasPorts && hasAdapters)
	directionScore := detector.Ratio(dir.correct, dir.correct+dir.violations, 0.5)
	violationRatio := detector.Ratio(dir.violations, dir.cross, 0)

	confidence := detector.Clamp(0.3*roleCoverage + 0.2*portsAndAdapters + 0.2*directionScore +
		0.15*d.dip + 0.15*d.hiding - 0.1*violationRatio)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["role_coverage"] = roleCoverage
	metrics["ports_and_adapters"] = portsAndAdapters
	metrics["direction"] = directionScore
	metrics["violations"] = float64(dir.violations)
	metrics["violation_ratio"] = violationRatio
	metrics["dependency_inversion"] = d.dip
	metrics["information_hiding"] = d.hiding
	for _, role := range hexagonalRoles {
		metrics[role+"_components"] = float64(counts[role])
	}

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Description: detector.Describe("a hexagonal (ports and adapters) architecture", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: counts[classify.HexDomain] == 0, Text: "Isolate core business logic in a domain package."},
			detector.Advice{When: !hasPorts, Text: "Define ports as interfaces owned by the domain."},
			detector.Advice{When: !hasAdapters, Text: "Move technology-specific code into adapters that implement ports."},
			detector.Advice{When: dir.violations > 0, Text: fmt.Sprintf("Route %d adapter dependencies on the domain through ports.", dir.violations)},
			detector.Advice{When: d.dip < 0.5, Text: "Invert dependencies so adapters depend on domain-owned abstractions."},
		),
	}
}
