// Package detector defines the capability every intent and style analyzer implements
// and the two-phase runner that feeds them a corpus.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/graph"
)

// ErrInvalidFact is returned by Ingest or Link for a record that cannot become a node.
var ErrInvalidFact = errors.New("invalid component fact")

// Detector is one analyzer instance. It owns its graph and is used for a single run.
type Detector interface {
	// Name returns the result key (e.g. "layered", "separation_of_concerns").
	Name() string
	// Classify maps a fact to this detector's label. It must be pure.
	Classify(f *facts.ComponentFact) string
	// Ingest classifies f and registers it as a node.
	Ingest(f *facts.ComponentFact) error
	// Link resolves f's imports into edges. It runs after every fact was ingested.
	Link(f *facts.ComponentFact) error
	// Analyze scores the finished graph.
	Analyze() facts.Result
}

// Run builds d's graph in two phases and analyzes it. A file that fails or panics in a
// phase is logged and skipped for d only.
func Run(ctx context.Context, logger *slog.Logger, d Detector, ff []facts.ComponentFact) (facts.Result, error) {
	if err := ctx.Err(); err != nil {
		return facts.Result{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("detector", d.Name())

	ingested := make([]int, 0, len(ff))
	for i := range ff {
		if err := guard(func() error { return d.Ingest(&ff[i]) }); err != nil {
			logger.Warn("skipping file", "phase", "ingest", "path", ff[i].Path, "error", err)
			continue
		}
		ingested = append(ingested, i)
	}

	for _, i := range ingested {
		if err := guard(func() error { return d.Link(&ff[i]) }); err != nil {
			logger.Warn("skipping file", "phase", "link", "path", ff[i].Path, "error", err)
		}
	}

	var result facts.Result
	if err := guard(func() error {
		result = d.Analyze()
		return nil
	}); err != nil {
		return facts.Result{}, fmt.Errorf("analyzing %s: %w", d.Name(), err)
	}
	result.Name = d.Name()
	result.Confidence = Clamp(result.Confidence)
	return result, nil
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Validate rejects facts that cannot be turned into a node.
func Validate(f *facts.ComponentFact) error {
	if f == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidFact)
	}
	if f.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidFact)
	}
	return nil
}

// Base carries the graph, resolver and table a detector needs. Detectors embed it and
// get Classify and Link for free.
type Base struct {
	Graph    *graph.Graph
	Resolver *graph.Resolver
	Table    *classify.Table
}

// NewBase creates a fresh graph and resolver around table.
func NewBase(table *classify.Table, opts ...graph.Option) Base {
	return Base{
		Graph:    graph.New(),
		Resolver: graph.NewResolver(opts...),
		Table:    table,
	}
}

// Classify matches the path first, then identifiers and hints.
func (b *Base) Classify(f *facts.ComponentFact) string {
	return b.Table.Classify(f.Path, f.Keywords())
}

// Register validates f and adds it to the graph under label.
func (b *Base) Register(f *facts.ComponentFact, label string) (*graph.Node, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	return b.Graph.AddOrGetNode(f.Path, label), nil
}

// Link resolves f's imports against the graph.
func (b *Base) Link(f *facts.ComponentFact) error {
	if err := Validate(f); err != nil {
		return err
	}
	b.Resolver.Link(b.Graph, f.Path, f.Imports)
	return nil
}
