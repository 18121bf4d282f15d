package style

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/intent"
)

func run(t *testing.T, d detector.Detector, ff []facts.ComponentFact) facts.Result {
	t.Helper()
	res, err := detector.Run(context.Background(), nil, d, ff)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	return res
}

func intentContext(dip, hiding float64) facts.IntentReport {
	return facts.IntentReport{Results: map[string]facts.Result{
		intent.DependencyInversionName: {Confidence: dip},
		intent.InformationHidingName:   {Confidence: hiding},
	}}
}

func layeredCorpus() []facts.ComponentFact {
	return []facts.ComponentFact{
		{Path: "app/controllers/user_controller.go", Imports: []string{"app/services/user_service"}},
		{Path: "app/services/user_service.go", Imports: []string{"app/repositories/user_repository"}},
		{Path: "app/repositories/user_repository.go", Imports: []string{"app/domain/user"}},
		{Path: "app/domain/user.go"},
	}
}

func TestLayered(t *testing.T) {
	reg := classify.NewRegistry()
	clean := run(t, NewLayered(reg, nil), layeredCorpus())

	assert.Equal(t, 1.0, clean.Metrics["compliance"])
	assert.Equal(t, 0.0, clean.Metrics["violations"])
	assert.InDelta(t, 1.0, clean.Confidence, 1e-9)
	assert.Equal(t, "presentation>business>data_access>domain", clean.Pattern)
	assert.Empty(t, clean.Recommendations)

	ff := layeredCorpus()
	ff[3].Imports = []string{"app/controllers/user_controller"}
	violating := run(t, NewLayered(reg, nil), ff)

	assert.Equal(t, 1.0, violating.Metrics["violations"])
	assert.InDelta(t, 0.85, violating.Confidence, 1e-9)
	assert.Less(t, violating.Confidence, clean.Confidence)
}

func TestLayered_SingleLayerIsHalved(t *testing.T) {
	ff := []facts.ComponentFact{{Path: "app/services/a_service.go"}, {Path: "app/services/b_service.go"}}
	res := run(t, NewLayered(classify.NewRegistry(), nil), ff)
	// (0.35*0.25 + 0.25*1 + 0.4*0.5) / 2
	assert.InDelta(t, 0.26875, res.Confidence, 1e-9)
}

func hexagonalCorpus() []facts.ComponentFact {
	return []facts.ComponentFact{
		{Path: "internal/domain/order.go", Imports: []string{"internal/ports/order_repository"}},
		{Path: "internal/ports/order_repository.go"},
		{Path: "internal/adapters/postgres/order_repository.go", Imports: []string{"internal/ports/order_repository"}},
	}
}

func TestHexagonal(t *testing.T) {
	reg := classify.NewRegistry()
	ctx := intentContext(0.8, 0.6)
	d := NewHexagonal(reg, ctx, nil)
	res := run(t, d, hexagonalCorpus())

	assert.Equal(t, classify.HexDomain, d.Graph.Label("internal/domain/order.go"))
	assert.Equal(t, classify.HexPort, d.Graph.Label("internal/ports/order_repository.go"))
	assert.Equal(t, classify.HexAdapter, d.Graph.Label("internal/adapters/postgres/order_repository.go"))
	assert.Equal(t, 1.0, res.Metrics["direction"])
	assert.InDelta(t, 0.835, res.Confidence, 1e-9)

	ff := hexagonalCorpus()
	ff[2].Imports = append(ff[2].Imports, "internal/domain/order")
	violating := run(t, NewHexagonal(reg, ctx, nil), ff)

	assert.Equal(t, 1.0, violating.Metrics["violations"])
	assert.Less(t, violating.Confidence, res.Confidence)
}

func TestHexagonal_RewardsIntentScores(t *testing.T) {
	reg := classify.NewRegistry()
	low := run(t, NewHexagonal(reg, intentContext(0, 0), nil), hexagonalCorpus())
	high := run(t, NewHexagonal(reg, intentContext(1, 1), nil), hexagonalCorpus())
	assert.InDelta(t, 0.3, high.Confidence-low.Confidence, 1e-9)
}

func cleanCorpus() []facts.ComponentFact {
	return []facts.ComponentFact{
		{Path: "core/entities/order.go"},
		{Path: "core/usecases/place_order.go", Imports: []string{"core/entities/order"}},
		{Path: "adapters/http/order_controller.go", Imports: []string{"core/usecases/place_order"}},
		{Path: "frameworks/web/server.go", Imports: []string{"adapters/http/order_controller"}},
	}
}

func TestClean(t *testing.T) {
	reg := classify.NewRegistry()
	ctx := intentContext(0.5, 0)
	res := run(t, NewClean(reg, ctx, nil), cleanCorpus())

	assert.Equal(t, 1.0, res.Metrics["entity_independence"])
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)

	ff := cleanCorpus()
	ff[0].Imports = []string{"frameworks/web/server"}
	violating := run(t, NewClean(reg, ctx, nil), ff)

	assert.Equal(t, 1.0, violating.Metrics["violations"])
	assert.Equal(t, 0.0, violating.Metrics["entity_independence"])
	assert.InDelta(t, 0.675, violating.Confidence, 1e-9)
}

func TestClean_ViolationNeverRaisesConfidence(t *testing.T) {
	reg := classify.NewRegistry()
	ctx := intentContext(0.5, 0)
	base := run(t, NewClean(reg, ctx, nil), cleanCorpus())

	tests := map[string]struct {
		from   int
		target string
	}{
		"use case to adapter":   {from: 1, target: "adapters/http/order_controller"},
		"adapter to framework":  {from: 2, target: "frameworks/web/server"},
		"entity to use case":    {from: 0, target: "core/usecases/place_order"},
		"use case to framework": {from: 1, target: "frameworks/web/server"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ff := cleanCorpus()
			ff[tt.from].Imports = append(ff[tt.from].Imports, tt.target)
			res := run(t, NewClean(reg, ctx, nil), ff)

			assert.Equal(t, 1.0, res.Metrics["violations"])
			assert.Less(t, res.Confidence, base.Confidence)
		})
	}
}

func TestClean_NoEntities(t *testing.T) {
	ff := []facts.ComponentFact{{Path: "core/usecases/a.go"}}
	res := run(t, NewClean(classify.NewRegistry(), facts.IntentReport{}, nil), ff)
	assert.Equal(t, 0.0, res.Metrics["entity_independence"])
	assert.Contains(t, res.Recommendations, "Extract enterprise business rules into entity types with no outward dependencies.")
}

func TestServiceOf(t *testing.T) {
	tests := map[string]string{
		"services/orders/api/x.go": "orders",
		"apps/web/src/a.ts":        "web",
		"billing-service/main.go":  "billing-service",
		"auth-svc/x.go":            "auth-svc",
		"internal/service/x.go":    "",
		"services/x.go":            "",
		"main.go":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ServiceOf(in), in)
	}
}

func TestMicroservices(t *testing.T) {
	ff := []facts.ComponentFact{
		{Path: "services/orders/api/handler.go", Imports: []string{"services/billing/client"}},
		{Path: "services/orders/db/repository.go"},
		{Path: "services/orders/Dockerfile"},
		{Path: "services/billing/client.go"},
		{Path: "services/billing/Dockerfile"},
		{Path: "services/billing/api/routes.go"},
	}
	res := run(t, NewMicroservices(classify.NewRegistry(), nil), ff)

	assert.Equal(t, 2.0, res.Metrics["services"])
	assert.Equal(t, 0.0, res.Metrics["service_autonomy"])
	assert.Equal(t, 1.0, res.Metrics["api_ratio"])
	assert.Equal(t, 0.5, res.Metrics["database_ratio"])
	assert.Equal(t, 1.0, res.Metrics["container_ratio"])
	assert.Equal(t, 0.5, res.Metrics["communication_ratio"])
	assert.InDelta(t, 0.35, res.Confidence, 1e-9)
}

func TestMicroservices_SingleServiceScoresZero(t *testing.T) {
	ff := []facts.ComponentFact{{Path: "services/orders/api/handler.go"}, {Path: "services/orders/Dockerfile"}}
	res := run(t, NewMicroservices(classify.NewRegistry(), nil), ff)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestMicroservices_CrossServiceEdgeLowersAutonomy(t *testing.T) {
	corpus := func() []facts.ComponentFact {
		return []facts.ComponentFact{
			{Path: "services/orders/api/handler.go", Imports: []string{"services/orders/store"}},
			{Path: "services/orders/store.go"},
			{Path: "services/billing/api/routes.go", Imports: []string{"services/billing/ledger"}},
			{Path: "services/billing/ledger.go"},
		}
	}
	reg := classify.NewRegistry()
	base := run(t, NewMicroservices(reg, nil), corpus())
	require.Equal(t, 1.0, base.Metrics["service_autonomy"])

	ff := corpus()
	ff[0].Imports = append(ff[0].Imports, "services/billing/ledger")
	coupled := run(t, NewMicroservices(reg, nil), ff)

	assert.Equal(t, 1.0, coupled.Metrics["cross_service_edges"])
	assert.InDelta(t, 2.0/3, coupled.Metrics["service_autonomy"], 1e-9)
	assert.Less(t, coupled.Confidence, base.Confidence)
}

func eventCorpus() []facts.ComponentFact {
	return []facts.ComponentFact{
		{Path: "events/order_placed.go"},
		{Path: "publishers/order_publisher.go", AsyncConstructs: 1, Imports: []string{"github.com/segmentio/kafka-go", "events/order_placed"}},
		{Path: "consumers/order_consumer.go", AsyncConstructs: 1, MessageConstructs: 1, Imports: []string{"events/order_placed"}},
	}
}

func TestEventDriven(t *testing.T) {
	reg := classify.NewRegistry()
	d := NewEventDriven(reg, nil)
	res := run(t, d, eventCorpus())

	n, ok := d.Graph.Node("external://kafka")
	require.True(t, ok)
	assert.True(t, n.External)
	assert.Equal(t, 1.0, res.Metrics["brokers"])
	assert.Equal(t, 3.0, res.Metrics[detector.MetricComponents])
	assert.InDelta(t, 0.25+0.2*2.0/3+0.45, res.Confidence, 1e-9)

	ff := eventCorpus()
	ff[2].Imports = append(ff[2].Imports, "publishers/order_publisher")
	coupled := run(t, NewEventDriven(reg, nil), ff)

	assert.Equal(t, 1.0, coupled.Metrics["coupled_edges"])
	assert.Less(t, coupled.Confidence, res.Confidence)
}

func TestEventDriven_Patterns(t *testing.T) {
	ff := []facts.ComponentFact{
		{Path: "app/commands/create_order.go"},
		{Path: "app/queries/get_order.go"},
		{Path: "app/eventstore/store.go"},
	}
	res := run(t, NewEventDriven(classify.NewRegistry(), nil), ff)
	assert.Equal(t, PatternCQRSEventSourcing, res.Pattern)
}

func TestStyles_EmptyCorpus(t *testing.T) {
	agg := NewAggregator(classify.NewRegistry(), nil)
	for _, d := range agg.Detectors(facts.IntentReport{}) {
		res := run(t, d, nil)
		assert.Equal(t, 0.0, res.Confidence, d.Name())
		assert.Equal(t, detector.NoComponents, res.Description, d.Name())
	}
}
