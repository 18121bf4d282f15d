package style

import (
	"fmt"
	"log/slog"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// EventDrivenName is the result key of the event-driven analyzer.
const EventDrivenName = "event_driven"

// Event-driven sub-patterns reported in Result.Pattern.
const (
	PatternCQRS              = "cqrs"
	PatternEventSourcing     = "event-sourcing"
	PatternCQRSEventSourcing = "cqrs+event-sourcing"
)

const (
	metricMessaging = "messaging"
	metricAsync     = "async"
)

// EventDriven scores message passing, asynchronous processing and the presence of
// producers, consumers and brokers. Imports of known broker clients become external nodes.
type EventDriven struct {
	detector.Base
}

// NewEventDriven creates an analyzer for one run. The registry's broker vocabulary turns
// matching imports into external:// references.
func NewEventDriven(reg *classify.Registry, logger *slog.Logger) *EventDriven {
	return &EventDriven{
		Base: detector.NewBase(reg.Table(classify.TableEventDriven),
			graph.WithExternalKeywords(reg.Brokers()...),
			graph.WithLogger(logger)),
	}
}

func (d *EventDriven) Name() string {
	return EventDrivenName
}

func (d *EventDriven) Ingest(f *facts.ComponentFact) error {
	node, err := d.Register(f, d.Classify(f))
	if err != nil {
		return err
	}
	node.Metrics[metricMessaging] = detector.Flag(f.MessageConstructs > 0)
	node.Metrics[metricAsync] = detector.Flag(f.AsyncConstructs > 0)
	return nil
}

func isProducerConsumerPair(a, b string) bool {
	return (a == classify.EventProducer && b == classify.EventConsumer) ||
		(a == classify.EventConsumer && b == classify.EventProducer)
}

func (d *EventDriven) Analyze() facts.Result {
	comps := d.Graph.Components()
	if len(comps) == 0 {
		return detector.Empty(d.Name())
	}

	counts := d.Graph.LabelCounts()
	messaging, async := 0, 0
	for _, n := range comps {
		if n.Metrics[metricMessaging] > 0 || n.Label != classify.Unknown {
			messaging++
		}
		if n.Metrics[metricAsync] > 0 {
			async++
		}
	}

	externalBrokers := 0
	for _, n := range d.Graph.Nodes() {
		if n.External {
			externalBrokers++
		}
	}

	coupled := 0
	for _, e := range d.Graph.Edges() {
		if isProducerConsumerPair(d.Graph.Label(e.From), d.Graph.Label(e.To)) {
			coupled++
		}
	}

	messagePassing := detector.Ratio(messaging, len(comps), 0)
	asyncRatio := detector.Ratio(async, len(comps), 0)
	producers := detector.Flag(counts[classify.EventProducer] > 0)
	consumers := detector.Flag(counts[classify.EventConsumer] > 0)
	brokers := detector.Flag(counts[classify.EventBroker] > 0 || externalBrokers > 0)
	cqrs := counts[classify.EventCommandHandler] > 0 && counts[classify.EventQueryHandler] > 0
	sourcing := counts[classify.EventStore] > 0
	couplingRatio := detector.Ratio(coupled, d.Graph.EdgeCount(), 0)

	confidence := detector.Clamp(0.25*messagePassing + 0.2*asyncRatio + 0.15*producers + 0.15*consumers +
		0.15*brokers + 0.05*detector.Flag(cqrs) + 0.05*detector.Flag(sourcing) - 0.1*couplingRatio)

	metrics := detector.GraphMetrics(d.Graph)
	metrics["message_passing_ratio"] = messagePassing
	metrics["async_ratio"] = asyncRatio
	metrics["producers"] = float64(counts[classify.EventProducer])
	metrics["consumers"] = float64(counts[classify.EventConsumer])
	metrics["brokers"] = float64(counts[classify.EventBroker] + externalBrokers)
	metrics["cqrs"] = detector.Flag(cqrs)
	metrics["event_sourcing"] = detector.Flag(sourcing)
	metrics["coupled_edges"] = float64(coupled)
	metrics["coupling_ratio"] = couplingRatio

	pattern := ""
	switch {
	case cqrs && sourcing:
		pattern = PatternCQRSEventSourcing
	case cqrs:
		pattern = PatternCQRS
	case sourcing:
		pattern = PatternEventSourcing
	}

	return facts.Result{
		Confidence:  confidence,
		Metrics:     metrics,
		Pattern:     pattern,
		Description: detector.Describe("an event-driven architecture", confidence),
		Recommendations: detector.Recommend(confidence,
			detector.Advice{When: brokers == 0, Text: "Introduce a message broker or event bus to decouple producers from consumers."},
			detector.Advice{When: producers == 0, Text: "Publish domain events from the components that own state changes."},
			detector.Advice{When: consumers == 0, Text: "Handle events in dedicated consumers or subscribers."},
			detector.Advice{When: asyncRatio < 0.2, Text: "Process events asynchronously instead of calling handlers inline."},
			detector.Advice{When: coupled > 0, Text: fmt.Sprintf("Route %d direct producer and consumer dependencies through the broker.", coupled)},
		),
	}
}
