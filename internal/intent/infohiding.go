package intent

import (
	"log/slog"
	"math"
	"strings"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// InformationHidingName is the result key of the information hiding analyzer.
const InformationHidingName = "information_hiding"

// InformationHidingExcellent is the confidence from which no summary advice is given.
const InformationHidingExcellent = 0.75

// LabelModule is the information hiding label of components without any visibility signal.
const LabelModule = "module"

// Per-component metric keys stored on graph nodes.
const (
	metricEncapsulation   = "encapsulation"
	metricInterfaceUsage  = "interface_usage"
	metricHidingScore     = "hiding_score"
	metricExplicitExports = "explicit_exports"
	metricImplements      = "implements"
)

// InformationHiding scores encapsulation, interface usage and boundary clarity.
type InformationHiding struct {
	detector.Base
}

// NewInformationHiding creates an analyzer for one run.
func NewInformationHiding(reg *classify.Registry, logger *slog.Logger) *InformationHiding {
	return &InformationHiding{
		Base: detector.NewBase(reg.Table(classify.TableInfoHiding), graph.WithLogger(logger)),
	}
}

func (d *InformationHiding) Name() string {
	return InformationHidingName
}

// Classify falls back to the interface flags when no path or keyword rule matches.
func (d *InformationHiding) Classify(f *facts.ComponentFact) string {
	label := d.Base.Classify(f)
	if label != classify.Unknown {
		return label
	}
	switch {
	case f.DefinesInterface:
		return classify.HidingInterface
	case f.ImplementsInterface:
		return classify.HidingImplementation
	}
	return LabelModule
}

func (d *InformationHiding) Ingest(f *facts.ComponentFact) error {
	label := d.Classify(f)
	node, err := d.Register(f, label)
	if err != nil {
		return err
	}

	enc := encapsulation(f)
	hiding := enc
	if f.InfoHidingScore > 0 {
		hiding = detector.Clamp(f.InfoHidingScore)
	}
	abstraction := detector.Ratio(f.AbstractTypes, f.AbstractTypes+f.ConcreteTypes, 0)
	usage := math.Min(1, 0.5*detector.Flag(f.DefinesInterface)+0.3*detector.Flag(f.ImplementsInterface)+0.2*abstraction)

	node.Metrics[metricEncapsulation] = enc
	node.Metrics[metricHidingScore] = hiding
	node.Metrics[metricInterfaceUsage] = usage
	node.Metrics[metricExplicitExports] = detector.Flag(f.ExplicitExports)
	node.Metrics[metricImplements] = detector.Flag(f.ImplementsInterface || label == classify.HidingImplementation)
	return nil
}

// encapsulation is private/(private+public), or the precomputed ratio when no members were counted.
func encapsulation(f *facts.ComponentFact) float64 {
	if total := f.PrivateMembers + f.PublicMembers; total > 0 {
		return float64(f.PrivateMembers) / float64(total)
	}
	return detector.Clamp(f.EncapsulationRatio)
}

// importLocality is the share of id's resolved dependencies that stay in its top directory.
func (d *InformationHiding) importLocality(id string) float64 {
	local, total := 0, 0
	top := topDir(id)
	for _, to := range d.Graph.Out(id) {
		if n, ok := d.Graph.Node(to); ok && n.External {
			continue
		}
		total++
		if topDir(to) == top {
			local++
		}
	}
	return detector.Ratio(local, total, 1)
}

func topDir(p string) string {
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

func (d *InformationHiding) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	var enc, hiding, usage, boundary []float64
	implementations := 0
	for _, n := range comps {
		enc = append(enc, n.Metrics[metricEncapsulation])
		hiding = append(hiding, n.Metrics[metricHidingScore])
		usage = append(usage, n.Metrics[metricInterfaceUsage])
		boundary = append(boundary, 0.5*n.Metrics[metricExplicitExports]+0.5*d.importLocality(n.ID))
		if n.Metrics[metricImplements] > 0 {
			implementations++
		}
	}

	avgEnc := detector.Mean(enc)
	avgHiding := detector.Mean(hiding)
	avgUsage := detector.Mean(usage)
	avgBoundary := detector.Mean(boundary)
	implRatio := detector.Ratio(implementations, len(comps), 0)

	confidence := detector.Clamp(0.4*avgEnc + 0.2*avgHiding + 0.2*avgUsage + 0.1*implRatio + 0.1*avgBoundary)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["avg_encapsulation"] = avgEnc
	metrics["avg_info_hiding"] = avgHiding
	metrics["avg_interface_usage"] = avgUsage
	metrics["avg_boundary_clarity"] = avgBoundary
	metrics["implementation_ratio"] = implRatio

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Description: detector.Describe("information hiding", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: avgEnc < 0.5, Text: "Reduce the public surface of components and keep helpers and state private."},
			detector.Advice{When: avgUsage < 0.3, Text: "Define interfaces at module boundaries and depend on them instead of concrete types."},
			detector.Advice{When: avgBoundary < 0.5, Text: "Make module boundaries explicit with export lists or visibility modifiers."},
			detector.Advice{When: implRatio < 0.2, Text: "Separate interface definitions from their implementations."},
		),
	}
}
