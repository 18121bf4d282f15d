package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrGetNode_Idempotent(t *testing.T) {
	g := New()
	a := g.AddOrGetNode("a.go", "service")
	b := g.AddOrGetNode("a.go", "model")

	assert.Same(t, a, b)
	assert.Equal(t, "service", b.Label, "a classified node keeps its first label")
	assert.Equal(t, 1, g.NodeCount())
}

func TestAddOrGetNode_EnrichesUnknown(t *testing.T) {
	g := New()
	g.AddOrGetNode("a.go", Unknown)
	n := g.AddOrGetNode("a.go", "repository")
	assert.Equal(t, "repository", n.Label)

	empty := g.AddOrGetNode("b.go", "")
	assert.Equal(t, Unknown, empty.Label)
}

func TestAddEdge_OnlyBetweenExistingNodes(t *testing.T) {
	g := New()
	g.AddOrGetNode("a", "x")
	g.AddOrGetNode("b", "y")

	assert.True(t, g.AddEdge("a", "b"))
	assert.False(t, g.AddEdge("a", "b"), "duplicate edge")
	assert.False(t, g.AddEdge("a", "missing"), "dangling target")
	assert.False(t, g.AddEdge("missing", "a"), "dangling source")
	assert.False(t, g.AddEdge("a", "a"), "self edge")
	assert.Equal(t, []Edge{{From: "a", To: "b"}}, g.Edges())
	assert.Equal(t, []string{"b"}, g.Out("a"))
}

func TestComponentsExcludePlaceholders(t *testing.T) {
	g := New()
	g.AddOrGetNode("a", "producer")
	g.AddPlaceholder("external://kafka")
	g.AddOrGetNode("b", Unknown)

	comps := g.Components()
	require.Len(t, comps, 2)
	assert.Equal(t, "a", comps[0].ID)
	assert.Equal(t, map[string]int{"producer": 1}, g.LabelCounts())
	assert.Equal(t, 3, g.NodeCount())
}

func TestCycles(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddOrGetNode(id, "x")
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddEdge("c", "d")

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cycles[0])
	assert.Equal(t, 3, g.CyclicNodeCount())
}

func TestCycles_Acyclic(t *testing.T) {
	g := New()
	g.AddOrGetNode("a", "x")
	g.AddOrGetNode("b", "x")
	g.AddEdge("a", "b")
	assert.Empty(t, g.Cycles())
	assert.Zero(t, g.CyclicNodeCount())
}
