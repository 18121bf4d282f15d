package markdown

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dejo1307/archstyle/internal/detector"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/intent"
	"github.com/dejo1307/archstyle/internal/style"
)

// ArtifactName is the file the renderer produces.
const ArtifactName = "report.md"

// minBudget keeps room for the header and the truncation notice.
const minBudget = 256

var intentOrder = []string{
	intent.SeparationOfConcernsName,
	intent.InformationHidingName,
	intent.DependencyInversionName,
}

// Renderer produces a markdown report of an analysis run.
type Renderer struct {
	maxChars int
}

// New creates a renderer that keeps its output under maxChars characters. Zero or less
// means 64000.
func New(maxChars int) *Renderer {
	if maxChars <= 0 {
		maxChars = 64000
	}
	if maxChars < minBudget {
		maxChars = minBudget
	}
	return &Renderer{maxChars: maxChars}
}

func (r *Renderer) Name() string {
	return "markdown"
}

// section holds a rendered section with its display name.
type section struct {
	name    string
	content string
}

// Render produces report.md. Sections are ordered by priority; lower-priority sections are
// cut first when the budget is tight.
func (r *Renderer) Render(ctx context.Context, snapshot *facts.Snapshot) ([]facts.Artifact, error) {
	if snapshot == nil || snapshot.Report == nil {
		return nil, errors.New("snapshot has no report")
	}
	rep := snapshot.Report

	sections := []section{
		{"Summary", renderSummary(rep)},
		{"Intents", renderIntents(rep)},
		{"Styles", renderStyles(rep)},
		{"Recommendations", renderRecommendations(rep)},
		{"Components", renderComponents(snapshot.Facts)},
		{"Endpoints", renderHintTable("Endpoints", snapshot.Facts, endpointHint)},
		{"Storage", renderHintTable("Storage", snapshot.Facts, storageHint)},
		{"Metrics", renderMetrics(rep)},
		{"Meta", renderMeta(snapshot.Meta)},
	}

	header := "# Architecture Report\n\n"
	remaining := r.maxChars - len(header)

	var sb strings.Builder
	sb.WriteString(header)

	for i, sec := range sections {
		if sec.content == "" {
			continue
		}
		if len(sec.content) <= remaining {
			sb.WriteString(sec.content)
			remaining -= len(sec.content)
			continue
		}
		if remaining > 200 {
			cut := remaining - 100
			for cut > 0 && !utf8.RuneStart(sec.content[cut]) {
				cut--
			}
			sb.WriteString(sec.content[:cut])
			fmt.Fprintf(&sb, "\n\n---\n*[Truncated in: %s]*\n", sec.name)
			break
		}
		var omitted []string
		for _, s := range sections[i:] {
			if s.content != "" {
				omitted = append(omitted, s.name)
			}
		}
		fmt.Fprintf(&sb, "\n---\n*[Omitted: %s]*\n", strings.Join(omitted, ", "))
		break
	}

	return []facts.Artifact{
		{
			Name:    ArtifactName,
			Content: []byte(sb.String()),
			Type:    "text/markdown",
		},
	}, nil
}

func renderSummary(rep *facts.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("## Summary\n\n")
	if rep.Styles.Primary != style.Unknown {
		fmt.Fprintf(&sb, "**Primary style:** %s (%.0f%%)\n\n", title(rep.Styles.Primary), rep.Styles.ByName[rep.Styles.Primary].Confidence*100)
	}
	fmt.Fprintf(&sb, "**Overall intent score:** %.0f%% (%s)\n\n", rep.Intents.Overall*100, detector.Bucket(rep.Intents.Overall))
	if rep.Summary != "" {
		sb.WriteString(rep.Summary + "\n\n")
	}
	return sb.String()
}

func renderIntents(rep *facts.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("## Design Intents\n\n")
	sb.WriteString("| Intent | Confidence | Band | Pattern |\n")
	sb.WriteString("|--------|------------|------|---------|\n")
	for _, name := range intentOrder {
		res, ok := rep.Intents.Results[name]
		if !ok {
			continue
		}
		pattern := res.Pattern
		if pattern == "" {
			pattern = "-"
		}
		fmt.Fprintf(&sb, "| %s | %.2f | %s | %s |\n", title(name), res.Confidence, detector.Bucket(res.Confidence), pattern)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderStyles(rep *facts.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("## Architectural Styles\n\n")
	sb.WriteString("| Style | Confidence | Band | |\n")
	sb.WriteString("|-------|------------|------|-|\n")
	for _, name := range style.Order {
		res, ok := rep.Styles.ByName[name]
		if !ok {
			continue
		}
		marker := ""
		if name == rep.Styles.Primary {
			marker = "primary"
		}
		fmt.Fprintf(&sb, "| %s | %.2f | %s | %s |\n", title(name), res.Confidence, detector.Bucket(res.Confidence), marker)
	}
	sb.WriteString("\n")
	for _, name := range style.Order {
		if res, ok := rep.Styles.ByName[name]; ok && res.Description != "" {
			fmt.Fprintf(&sb, "- **%s**: %s\n", title(name), res.Description)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderRecommendations(rep *facts.AggregateReport) string {
	var lines []string
	add := func(name string, res facts.Result) {
		for _, rec := range res.Recommendations {
			lines = append(lines, fmt.Sprintf("- *%s*: %s", title(name), rec))
		}
	}
	for _, name := range intentOrder {
		add(name, rep.Intents.Results[name])
	}
	for _, name := range style.Order {
		add(name, rep.Styles.ByName[name])
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Recommendations\n\n" + strings.Join(lines, "\n") + "\n\n"
}

// renderComponents lists fact counts per top-level directory and language.
func renderComponents(ff []facts.ComponentFact) string {
	if len(ff) == 0 {
		return "## Components\n\n_No components extracted._\n\n"
	}

	type row struct {
		dir, lang string
	}
	counts := make(map[row]int)
	for _, f := range ff {
		lang := f.Language
		if lang == "" {
			lang = "unknown"
		}
		counts[row{topDir(f.Path), lang}]++
	}
	rows := make([]row, 0, len(counts))
	for k := range counts {
		rows = append(rows, k)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].dir != rows[j].dir {
			return rows[i].dir < rows[j].dir
		}
		return rows[i].lang < rows[j].lang
	})

	var sb strings.Builder
	sb.WriteString("## Components\n\n")
	sb.WriteString("| Directory | Language | Files |\n")
	sb.WriteString("|-----------|----------|-------|\n")
	for _, k := range rows {
		fmt.Fprintf(&sb, "| `%s` | %s | %d |\n", k.dir, k.lang, counts[k])
	}
	sb.WriteString("\n")
	return sb.String()
}

func topDir(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return "."
	}
	if i := strings.Index(dir, "/"); i >= 0 {
		return dir[:i]
	}
	return dir
}

func endpointHint(h string) (string, bool) {
	return strings.CutPrefix(h, "endpoint ")
}

func storageHint(h string) (string, bool) {
	if strings.HasPrefix(h, "database:") || strings.HasPrefix(h, "sql_table:") || h == "sql" || h == "s3_storage" {
		return h, true
	}
	return "", false
}

// renderHintTable lists the hints selected by pick together with the files carrying them.
func renderHintTable(heading string, ff []facts.ComponentFact, pick func(string) (string, bool)) string {
	type entry struct {
		value, file string
	}
	var entries []entry
	for _, f := range ff {
		for _, h := range f.Hints {
			if v, ok := pick(h); ok {
				entries = append(entries, entry{v, f.Path})
			}
		}
	}
	if len(entries) == 0 {
		return ""
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].value < entries[j].value
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", heading)
	sb.WriteString("| Value | File |\n")
	sb.WriteString("|-------|------|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| `%s` | `%s` |\n", e.value, e.file)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderMetrics(rep *facts.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("## Metrics\n\n")
	write := func(name string, res facts.Result, ok bool) {
		if !ok || len(res.Metrics) == 0 {
			return
		}
		keys := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, "### %s\n\n", title(name))
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %.3g\n", k, res.Metrics[k])
		}
		sb.WriteString("\n")
	}
	for _, name := range intentOrder {
		res, ok := rep.Intents.Results[name]
		write(name, res, ok)
	}
	for _, name := range style.Order {
		res, ok := rep.Styles.ByName[name]
		write(name, res, ok)
	}
	return sb.String()
}

func renderMeta(meta facts.SnapshotMeta) string {
	var sb strings.Builder
	sb.WriteString("## Meta\n\n")
	if meta.RepoPath != "" {
		fmt.Fprintf(&sb, "- Repository: `%s`\n", meta.RepoPath)
	}
	fmt.Fprintf(&sb, "- Generated: %s\n", meta.GeneratedAt)
	fmt.Fprintf(&sb, "- Components: %d\n", meta.FactCount)
	if len(meta.Extractors) > 0 {
		fmt.Fprintf(&sb, "- Extractors: %s\n", strings.Join(meta.Extractors, ", "))
	}
	sb.WriteString("\n")
	return sb.String()
}

// title turns "clean_architecture" into "Clean Architecture".
func title(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
