// Package graph holds the per-detector component graph and the dependency resolver
// that turns raw import strings into edges between known components.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Unknown is the label of components no classifier rule matched, and of placeholders.
const Unknown = "unknown"

// Node is one classified component.
type Node struct {
	ID       string
	Label    string
	Metrics  map[string]float64
	External bool // synthetic external:// placeholder
}

// Edge is a directed dependency between two existing nodes.
type Edge struct {
	From string
	To   string
}

// Graph is a directed component graph owned by a single detector for a single run.
// Node ids are unique; edges form a set. Iteration follows insertion order.
type Graph struct {
	nodes     map[string]*Node
	order     []string
	edges     map[Edge]struct{}
	edgeOrder []Edge
	out       map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[Edge]struct{}),
		out:   make(map[string][]string),
	}
}

// AddOrGetNode registers a node or returns the existing one. An existing node labelled
// Unknown is enriched with the given label, so placeholders pick up their real category
// once the file is classified.
func (g *Graph) AddOrGetNode(id, label string) *Node {
	if n, ok := g.nodes[id]; ok {
		if n.Label == Unknown && label != Unknown && label != "" {
			n.Label = label
		}
		return n
	}
	if label == "" {
		label = Unknown
	}
	n := &Node{ID: id, Label: label, Metrics: make(map[string]float64)}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddPlaceholder registers an external placeholder node labelled Unknown.
func (g *Graph) AddPlaceholder(id string) *Node {
	n := g.AddOrGetNode(id, Unknown)
	n.External = true
	return n
}

// AddEdge adds from->to when both nodes exist and the edge is new. Self edges are ignored.
func (g *Graph) AddEdge(from, to string) bool {
	if from == to {
		return false
	}
	if _, ok := g.nodes[from]; !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	e := Edge{From: from, To: to}
	if _, dup := g.edges[e]; dup {
		return false
	}
	g.edges[e] = struct{}{}
	g.edgeOrder = append(g.edgeOrder, e)
	g.out[from] = append(g.out[from], to)
	return true
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is registered.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Label returns the label of id, or Unknown when absent.
func (g *Graph) Label(id string) string {
	if n, ok := g.nodes[id]; ok {
		return n.Label
	}
	return Unknown
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	result := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		result = append(result, g.nodes[id])
	}
	return result
}

// Components returns non-placeholder nodes in insertion order.
func (g *Graph) Components() []*Node {
	result := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		if n := g.nodes[id]; !n.External {
			result = append(result, n)
		}
	}
	return result
}

// IDs returns node ids in insertion order.
func (g *Graph) IDs() []string {
	result := make([]string, len(g.order))
	copy(result, g.order)
	return result
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	result := make([]Edge, len(g.edgeOrder))
	copy(result, g.edgeOrder)
	return result
}

// Out returns the targets of id's outgoing edges in insertion order.
func (g *Graph) Out(id string) []string {
	return g.out[id]
}

// NodeCount returns the number of registered nodes, placeholders included.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edgeOrder)
}

// LabelCounts counts non-placeholder nodes per label, Unknown excluded.
func (g *Graph) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Components() {
		if n.Label != Unknown {
			counts[n.Label]++
		}
	}
	return counts
}

// Cycles returns the strongly connected components with more than one node, each
// sorted by id, ordered by their first member.
func (g *Graph) Cycles() [][]string {
	dg := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(g.order))
	names := make(map[int64]string, len(g.order))
	for i, id := range g.order {
		ids[id] = int64(i)
		names[int64(i)] = id
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.edgeOrder {
		dg.SetEdge(simple.Edge{F: simple.Node(ids[e.From]), T: simple.Node(ids[e.To])})
	}

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) <= 1 {
			continue
		}
		members := make([]string, 0, len(scc))
		for _, n := range scc {
			members = append(members, names[n.ID()])
		}
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// CyclicNodeCount returns how many nodes take part in a dependency cycle.
func (g *Graph) CyclicNodeCount() int {
	count := 0
	for _, c := range g.Cycles() {
		count += len(c)
	}
	return count
}
