package intent

import (
	"log/slog"
	"math"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// DependencyInversionName is the result key of the dependency inversion analyzer.
const DependencyInversionName = "dependency_inversion"

// DependencyInversionExcellent is the confidence from which no summary advice is given.
const DependencyInversionExcellent = 0.7

// LabelConcrete is the dependency inversion label of components with no inversion role.
const LabelConcrete = "concrete"

const (
	metricAbstraction = "abstraction"
	metricInjection   = "injection"
	metricFactory     = "factory"
	metricDIP         = "dip"
	metricDefines     = "defines"
	metricInjected    = "injected"
)

// DependencyInversion scores abstraction usage, dependency injection and factories.
type DependencyInversion struct {
	detector.Base
}

// NewDependencyInversion creates an analyzer for one run.
func NewDependencyInversion(reg *classify.Registry, logger *slog.Logger) *DependencyInversion {
	return &DependencyInversion{
		Base: detector.NewBase(reg.Table(classify.TableDependencyInv), graph.WithLogger(logger)),
	}
}

func (d *DependencyInversion) Name() string {
	return DependencyInversionName
}

func (d *DependencyInversion) Classify(f *facts.ComponentFact) string {
	if label := d.Base.Classify(f); label != classify.Unknown {
		return label
	}
	return LabelConcrete
}

func (d *DependencyInversion) Ingest(f *facts.ComponentFact) error {
	label := d.Classify(f)
	node, err := d.Register(f, label)
	if err != nil {
		return err
	}

	abstraction := math.Min(1, 0.4*detector.Flag(f.DefinesInterface)+
		0.3*detector.Flag(f.ImplementsInterface)+
		0.3*detector.Flag(f.DependsOnInterface))

	injected := f.ConstructorInjection || f.FrameworkInjection || label == classify.DIPInjector
	injection := math.Min(1, 0.5*detector.Flag(injected)+
		0.2*detector.Flag(f.ConstructorInjection)+
		0.3*detector.Flag(f.FrameworkInjection))

	hasFactory := f.CreationPoints > 0 || label == classify.DIPFactory
	factory := 0.5*detector.Flag(hasFactory) + 0.5*math.Min(1, float64(f.CreationPoints)/5)

	dip := 0.6*abstraction + 0.4*injection
	if f.DIPScore > 0 {
		dip = detector.Clamp(f.DIPScore)
	}

	node.Metrics[metricAbstraction] = abstraction
	node.Metrics[metricInjection] = injection
	node.Metrics[metricFactory] = factory
	node.Metrics[metricDIP] = dip
	node.Metrics[metricDefines] = detector.Flag(f.DefinesInterface)
	node.Metrics[metricImplements] = detector.Flag(f.ImplementsInterface)
	node.Metrics[metricInjected] = detector.Flag(injected)
	return nil
}

func (d *DependencyInversion) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	var dip, abstraction, injection, factory []float64
	defs, impls, injected := 0, 0, 0
	for _, n := range comps {
		dip = append(dip, n.Metrics[metricDIP])
		abstraction = append(abstraction, n.Metrics[metricAbstraction])
		injection = append(injection, n.Metrics[metricInjection])
		factory = append(factory, n.Metrics[metricFactory])
		if n.Metrics[metricDefines] > 0 {
			defs++
		}
		if n.Metrics[metricImplements] > 0 {
			impls++
		}
		if n.Metrics[metricInjected] > 0 {
			injected++
		}
	}

	abstractEdges := 0
	for _, e := range d.Graph.Edges() {
		if d.Graph.Label(e.To) == classify.DIPAbstraction {
			abstractEdges++
		}
	}

	avgDIP := detector.Mean(dip)
	avgAbs := detector.Mean(abstraction)
	avgDI := detector.Mean(injection)
	avgFactory := detector.Mean(factory)
	inversion := detector.Ratio(defs+impls+injected, 3*len(comps), 0)

	confidence := detector.Clamp(0.4*avgDIP + 0.3*inversion + 0.2*avgAbs + 0.1*(avgDI+avgFactory)/2)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["avg_dip"] = avgDIP
	metrics["avg_abstraction"] = avgAbs
	metrics["avg_injection"] = avgDI
	metrics["avg_factory"] = avgFactory
	metrics["inversion_ratio"] = inversion
	metrics["abstract_dependency_ratio"] = detector.Ratio(abstractEdges, d.Graph.EdgeCount(), 0)

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Description: detector.Describe("dependency inversion", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: avgAbs < 0.4, Text: "Depend on interfaces or abstract types rather than concrete implementations."},
			detector.Advice{When: avgDI < 0.3, Text: "Inject dependencies through constructors instead of creating them inline."},
			detector.Advice{When: avgFactory < 0.2, Text: "Centralize object creation in factories or builders."},
			detector.Advice{When: inversion < 0.3, Text: "Let more components define, implement or receive abstractions."},
		),
	}
}
