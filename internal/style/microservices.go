package style

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// MicroservicesName is the result key of the microservices analyzer.
const MicroservicesName = "microservices"

// serviceRoots are directories whose children are individual services.
var serviceRoots = map[string]bool{
	"services":      true,
	"apps":          true,
	"microservices": true,
	"svc":           true,
	"packages":      true,
}

var serviceIndicators = []string{
	classify.ServiceAPI,
	classify.ServiceDatabase,
	classify.ServiceContainer,
	classify.ServiceCommunication,
}

// Microservices labels each component with the service it belongs to and scores service
// autonomy plus per-service API, database, container and communication indicators.
type Microservices struct {
	detector.Base
	indicators map[string]map[string]bool // service -> indicator -> seen
}

// NewMicroservices creates an analyzer for one run.
func NewMicroservices(reg *classify.Registry, logger *slog.Logger) *Microservices {
	return &Microservices{
		Base:       detector.NewBase(reg.Table(classify.TableMicroservices), graph.WithLogger(logger)),
		indicators: make(map[string]map[string]bool),
	}
}

func (d *Microservices) Name() string {
	return MicroservicesName
}

// Classify returns the owning service name, or Unknown outside any service.
func (d *Microservices) Classify(f *facts.ComponentFact) string {
	if svc := ServiceOf(f.Path); svc != "" {
		return svc
	}
	return classify.Unknown
}

func (d *Microservices) Ingest(f *facts.ComponentFact) error {
	svc := d.Classify(f)
	if _, err := d.Register(f, svc); err != nil {
		return err
	}
	if svc == classify.Unknown {
		return nil
	}
	seen, ok := d.indicators[svc]
	if !ok {
		seen = make(map[string]bool)
		d.indicators[svc] = seen
	}
	keywords := f.Keywords()
	for _, ind := range serviceIndicators {
		if d.Table.Matches(ind, f.Path, keywords) {
			seen[ind] = true
		}
	}
	return nil
}

// ServiceOf extracts the service a path belongs to: the directory after a service root, or
// a directory named like "billing-service" or "auth-svc". Empty when there is none.
func ServiceOf(p string) string {
	parts := strings.Split(strings.ToLower(strings.ReplaceAll(p, "\\", "/")), "/")
	dirs := parts[:len(parts)-1]
	for i, dir := range dirs {
		if serviceRoots[dir] && i+1 < len(dirs) {
			return dirs[i+1]
		}
		if (strings.HasSuffix(dir, "service") && dir != "service") || strings.HasSuffix(dir, "-svc") {
			return dir
		}
	}
	return ""
}

func (d *Microservices) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	services := d.Graph.LabelCounts()
	n := len(services)

	serviceEdges, crossEdges := 0, 0
	for _, e := range d.Graph.Edges() {
		src, dst := d.Graph.Label(e.From), d.Graph.Label(e.To)
		if src == classify.Unknown || dst == classify.Unknown {
			continue
		}
		serviceEdges++
		if src != dst {
			crossEdges++
		}
	}

	ratio := func(indicator string) float64 {
		have := 0
		for svc := range services {
			if d.indicators[svc][indicator] {
				have++
			}
		}
		return detector.Ratio(have, n, 0)
	}
	api := ratio(classify.ServiceAPI)
	db := ratio(classify.ServiceDatabase)
	container := ratio(classify.ServiceContainer)
	comm := ratio(classify.ServiceCommunication)

	autonomy := 1 - detector.Ratio(crossEdges, serviceEdges, 0)
	multi := 0.0
	if n >= 2 {
		multi = math.Min(1, float64(n)/3)
	}

	confidence := detector.Clamp(multi * (0.3*autonomy + 0.2*api + 0.2*db + 0.15*container + 0.15*comm))

	metrics := detector.GraphMetrics(d.Graph)
	metrics["services"] = float64(n)
	metrics["service_autonomy"] = autonomy
	metrics["cross_service_edges"] = float64(crossEdges)
	metrics["api_ratio"] = api
	metrics["database_ratio"] = db
	metrics["container_ratio"] = container
	metrics["communication_ratio"] = comm

	desc := detector.Describe("a microservices architecture", confidence)
	if n > 0 {
		desc += fmt.Sprintf(" Found %d candidate services.", n)
	}

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Description: desc,
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: autonomy < 0.7, Text: "Reduce direct code dependencies between services and communicate through APIs or messages."},
			detector.Advice{When: db < 0.5, Text: "Give each service ownership of its own data store."},
			detector.Advice{When: api < 0.5, Text: "Expose a well-defined API from every service."},
			detector.Advice{When: container < 0.5, Text: "Package each service for independent deployment with its own container definition."},
			detector.Advice{When: comm < 0.3, Text: "Introduce explicit inter-service communication such as HTTP clients or message queues."},
		),
	}
}
