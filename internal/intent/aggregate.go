package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dejo1307/archstyle/internal/classify"
	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
)

// Weights of the overall intent score.
const (
	weightSeparation = 0.4
	weightHiding     = 0.3
	weightInversion  = 0.3
)

// advice is appended to the summary for every intent below its excellent threshold.
var advice = []struct {
	name      string
	excellent float64
	text      string
}{
	{SeparationOfConcernsName, SeparationOfConcernsExcellent, "Separation of concerns would benefit from clearer layer and domain boundaries."},
	{InformationHidingName, InformationHidingExcellent, "Information hiding would benefit from narrower public surfaces behind interfaces."},
	{DependencyInversionName, DependencyInversionExcellent, "Dependency inversion would benefit from depending on abstractions and injecting collaborators."},
}

// Aggregator runs the three intent analyzers over one corpus.
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

// Detectors returns new instances of the intent analyzers in declaration order.
func (a *Aggregator) Detectors() []detector.Detector {
	return []detector.Detector{
		NewSeparationOfConcerns(a.registry, a.logger),
		NewInformationHiding(a.registry, a.logger),
		NewDependencyInversion(a.registry, a.logger),
	}
}

// Analyze runs the intent analyzers in parallel and combines their results.
func (a *Aggregator) Analyze(ctx context.Context, ff []facts.ComponentFact) (facts.IntentReport, error) {
	detectors := a.Detectors()
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
		return facts.IntentReport{}, fmt.Errorf("running intent analyzers: %w", err)
	}

	report := facts.IntentReport{Results: make(map[string]facts.Result, len(results))}
	for _, r := range results {
		report.Results[r.Name] = r
	}
	report.Overall = Overall(report.Results)
	report.Summary = Summarize(report.Overall, report.Results)
	return report, nil
}

// Overall is the weighted intent score.
func Overall(results map[string]facts.Result) float64 {
	return detector.Clamp(weightSeparation*results[SeparationOfConcernsName].Confidence +
		weightHiding*results[InformationHidingName].Confidence +
		weightInversion*results[DependencyInversionName].Confidence)
}

// Summarize builds the intent summary: a bucket sentence, then advice for every weak intent
// while the overall score is below the recommendation threshold.
func Summarize(overall float64, results map[string]facts.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The codebase shows %s adherence to core design intents (overall %.2f).", detector.Bucket(overall), overall)
	if overall >= detector.RecommendBelow {
		return sb.String()
	}
	for _, a := range advice {
		if results[a.name].Confidence < a.excellent {
			sb.WriteString(" ")
			sb.WriteString(a.text)
		}
	}
	return sb.String()
}
