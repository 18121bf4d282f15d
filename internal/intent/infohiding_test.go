package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/facts"
)

func TestInformationHiding_Score(t *testing.T) {
	ff := []facts.ComponentFact{
		{
			Path:             "internal/store/store.go",
			PublicMembers:    1,
			PrivateMembers:   3,
			DefinesInterface: true,
			ExplicitExports:  true,
			Imports:          []string{"internal/store/cache"},
		},
		{
			Path:                "internal/store/cache.go",
			PublicMembers:       2,
			PrivateMembers:      2,
			ImplementsInterface: true,
		},
	}
	res := runDetector(t, NewInformationHiding(classify.NewRegistry(), nil), ff)

	assert.InDelta(t, 0.625, res.Metrics["avg_encapsulation"], 1e-9)
	assert.InDelta(t, 0.4, res.Metrics["avg_interface_usage"], 1e-9)
	assert.InDelta(t, 0.75, res.Metrics["avg_boundary_clarity"], 1e-9)
	assert.InDelta(t, 0.5, res.Metrics["implementation_ratio"], 1e-9)
	assert.InDelta(t, 0.58, res.Confidence, 1e-9)
}

func TestInformationHiding_PrecomputedScores(t *testing.T) {
	ff := []facts.ComponentFact{
		{Path: "lib/a.py", EncapsulationRatio: 0.8, InfoHidingScore: 0.4},
	}
	res := runDetector(t, NewInformationHiding(classify.NewRegistry(), nil), ff)

	assert.InDelta(t, 0.8, res.Metrics["avg_encapsulation"], 1e-9)
	assert.InDelta(t, 0.4, res.Metrics["avg_info_hiding"], 1e-9)
}

func TestInformationHiding_ClassifyFallback(t *testing.T) {
	d := NewInformationHiding(classify.NewRegistry(), nil)
	tests := []struct {
		fact facts.ComponentFact
		want string
	}{
		{facts.ComponentFact{Path: "internal/x.go"}, classify.HidingInternal},
		{facts.ComponentFact{Path: "src/shapes.py", DefinesInterface: true}, classify.HidingInterface},
		{facts.ComponentFact{Path: "src/circle.py", ImplementsInterface: true}, classify.HidingImplementation},
		{facts.ComponentFact{Path: "src/main.py"}, LabelModule},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Classify(&tt.fact), tt.fact.Path)
	}
}

func TestInformationHiding_Empty(t *testing.T) {
	res := runDetector(t, NewInformationHiding(classify.NewRegistry(), nil), nil)
	assert.Equal(t, 0.0, res.Confidence)
}
