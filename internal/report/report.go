// Package report is the entry point of the analysis core: an ordered fact list in, one
// AggregateReport out.
package report

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/intent"
	"github.com/dejo1307/archstyle/internal/style"
)

// Analyzer runs the intent analyzers, then the style analyzers with the intent report as
// context. It keeps no state between runs.
type Analyzer struct {
	registry *classify.Registry
	logger   *slog.Logger
}

// New creates an analyzer. A nil registry means the built-in tables.
func New(reg *classify.Registry, logger *slog.Logger) *Analyzer {
	if reg == nil {
		reg = classify.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{registry: reg, logger: logger.With("component", "core")}
}

// Analyze produces the report for ff. The slice is only read.
func (a *Analyzer) Analyze(ctx context.Context, ff []facts.ComponentFact) (*facts.AggregateReport, error) {
	intents, err := intent.NewAggregator(a.registry, a.logger).Analyze(ctx, ff)
	if err != nil {
		return nil, err
	}

	styles, err := style.NewAggregator(a.registry, a.logger).Analyze(ctx, ff, intents)
	if err != nil {
		return nil, err
	}

	a.logger.Info("analysis complete",
		"components", len(ff),
		"intent_overall", intents.Overall,
		"primary_style", styles.Primary)

	return &facts.AggregateReport{
		Intents: intents,
		Styles:  styles,
		Summary: strings.TrimSpace(intents.Summary + " " + styles.Summary),
	}, nil
}
