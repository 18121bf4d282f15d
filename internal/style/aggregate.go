package style

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
)

// Selection thresholds.
const (
	PrimaryThreshold   = 0.4
	SecondaryThreshold = 0.3
)

// Unknown is the primary style when no style is confident enough.
const Unknown = classify.Unknown

// NoClearStyle opens the summary when no primary style was selected.
const NoClearStyle = "No clear architectural style was detected."

// Order is the declaration order of the styles. It breaks confidence ties.
var Order = []string{LayeredName, HexagonalName, CleanName, MicroservicesName, EventDrivenName}

// Aggregator runs the five style analyzers over one corpus.
type Aggregator struct {
	registry *classify.Registry
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. Detectors are created fresh for every call to Analyze.
func NewAggregator(reg *classify.Registry, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{registry: reg, logger: logger}
}

// Detectors returns new style analyzers in declaration order, each holding the intent
// report as read-only context.
func (a *Aggregator) Detectors(intents facts.IntentReport) []detector.Detector {
	return []detector.Detector{
		NewLayered(a.registry, a.logger),
		NewHexagonal(a.registry, intents, a.logger),
		NewClean(a.registry, intents, a.logger),
		NewMicroservices(a.registry, a.logger),
		NewEventDriven(a.registry, a.logger),
	}
}

// Analyze runs the style analyzers in parallel and selects the primary style.
func (a *Aggregator) Analyze(ctx context.Context, ff []facts.ComponentFact, intents facts.IntentReport) (facts.StyleReport, error) {
	detectors := a.Detectors(intents)
	results := make([]facts.Result, len(detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range detectors {
		g.Go(func() error {
			res, err := detector.Run(gctx, a.logger, d, ff)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return facts.StyleReport{}, fmt.Errorf("running style analyzers: %w", err)
	}

	report := facts.StyleReport{ByName: make(map[string]facts.Result, len(results))}
	for _, r := range results {
		report.ByName[r.Name] = r
	}
	report.Primary = SelectPrimary(report.ByName)
	report.Summary = Summarize(report.Primary, report.ByName)
	return report, nil
}

// SelectPrimary returns the most confident style at or above PrimaryThreshold. Ties go to
// the style declared first in Order. Unknown when no style qualifies.
func SelectPrimary(results map[string]facts.Result) string {
	primary := Unknown
	best := PrimaryThreshold
	for _, name := range Order {
		r, ok := results[name]
		if !ok {
			continue
		}
		if r.Confidence > best || (primary == Unknown && r.Confidence >= best) {
			primary = name
			best = r.Confidence
		}
	}
	return primary
}

// Secondary lists the styles other than primary at or above SecondaryThreshold, most
// confident first, ties in declaration order.
func Secondary(primary string, results map[string]facts.Result) []string {
	var names []string
	for _, name := range Order {
		if name == primary {
			continue
		}
		if r, ok := results[name]; ok && r.Confidence >= SecondaryThreshold {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return results[names[i]].Confidence > results[names[j]].Confidence
	})
	return names
}

// Summarize composes the style summary: the primary's description, the secondary styles,
// then the primary's first two recommendations.
func Summarize(primary string, results map[string]facts.Result) string {
	var parts []string
	if primary == Unknown {
		parts = append(parts, NoClearStyle)
	} else {
		parts = append(parts, results[primary].Description)
	}

	if secondary := Secondary(primary, results); len(secondary) > 0 {
		parts = append(parts, "Additionally, shows elements of: "+strings.Join(secondary, ", ")+".")
	}

	if primary != Unknown {
		recs := results[primary].Recommendations
		if len(recs) > 2 {
			recs = recs[:2]
		}
		parts = append(parts, recs...)
	}
	return strings.Join(parts, " ")
}
