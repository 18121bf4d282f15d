package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dejo1307/archstyle/internal/config"
	"github.com/dejo1307/archstyle/internal/extractors"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/renderers"
	"github.com/dejo1307/archstyle/internal/report"
)

// Artifact names written next to the renderer output.
const (
	FactsFile  = "facts.jsonl"
	ReportFile = "report.json"
	MetaFile   = "snapshot.meta.json"
)

// ErrNoSnapshot is returned by accessors before the first analysis.
var ErrNoSnapshot = errors.New("no snapshot generated")

// Engine orchestrates one analysis run: walk -> extract -> analyze -> render.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	extractors *extractors.Registry
	renderers  *renderers.Registry

	mu       sync.RWMutex
	corpus   *facts.Corpus
	snapshot *facts.Snapshot
}

// New creates a new Engine with the given config. Extractors and renderers must be
// registered after creation.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
		extractors: extractors.NewRegistry(),
		renderers:  renderers.NewRegistry(),
		corpus:     facts.NewCorpus(),
	}, nil
}

// RegisterExtractor adds an extractor to the engine.
func (e *Engine) RegisterExtractor(ext extractors.Extractor) {
	e.extractors.Register(ext)
}

// RegisterRenderer adds a renderer to the engine.
func (e *Engine) RegisterRenderer(rnd renderers.Renderer) {
	e.renderers.Register(rnd)
}

// Corpus returns the facts of the last run.
func (e *Engine) Corpus() *facts.Corpus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.corpus
}

// Snapshot returns the last generated snapshot, or nil.
func (e *Engine) Snapshot() *facts.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Config returns the engine config.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// GenerateSnapshot runs the full pipeline over the repository at repoPath. An empty path
// means the configured repo.
func (e *Engine) GenerateSnapshot(ctx context.Context, repoPath string) (*facts.Snapshot, error) {
	start := time.Now()

	if repoPath == "" {
		repoPath = e.cfg.Repo
	}
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}

	files, err := e.walkRepo(absRepo)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	e.logger.Info("walked repository", "repo", absRepo, "files", len(files))

	corpus := facts.NewCorpus()
	usedExtractors, err := e.runExtractors(ctx, absRepo, files, corpus)
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	e.logger.Info("extracted facts", "facts", corpus.Count(), "extractors", len(usedExtractors))

	return e.analyze(ctx, corpus, facts.SnapshotMeta{
		RepoPath:   absRepo,
		Extractors: usedExtractors,
	}, start)
}

// AnalyzeFacts runs the core and the renderers over facts supplied by the caller.
func (e *Engine) AnalyzeFacts(ctx context.Context, ff []facts.ComponentFact) (*facts.Snapshot, error) {
	corpus := facts.NewCorpus()
	corpus.Add(ff...)
	return e.analyze(ctx, corpus, facts.SnapshotMeta{}, time.Now())
}

// LoadFacts reads a facts file written by an earlier run and analyzes it.
func (e *Engine) LoadFacts(ctx context.Context, path string) (*facts.Snapshot, error) {
	corpus := facts.NewCorpus()
	if err := corpus.ReadJSONLFile(path); err != nil {
		return nil, err
	}
	e.logger.Info("loaded facts", "path", path, "facts", corpus.Count())
	return e.analyze(ctx, corpus, facts.SnapshotMeta{}, time.Now())
}

func (e *Engine) analyze(ctx context.Context, corpus *facts.Corpus, meta facts.SnapshotMeta, start time.Time) (*facts.Snapshot, error) {
	reg, err := e.cfg.Registry()
	if err != nil {
		return nil, err
	}

	ff := corpus.All()
	rep, err := report.New(reg, e.logger).Analyze(ctx, ff)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	meta.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	meta.FactCount = len(ff)
	meta.PrimaryStyle = rep.Styles.Primary
	meta.Renderers = []string{}
	snapshot := &facts.Snapshot{
		Meta:   meta,
		Facts:  ff,
		Report: rep,
	}

	usedRenderers, err := e.runRenderers(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	snapshot.Meta.Renderers = usedRenderers

	duration := time.Since(start)
	snapshot.Meta.Duration = duration.String()
	e.logger.Info("snapshot generated",
		"duration", duration,
		"artifacts", len(snapshot.Artifacts),
		"primary_style", rep.Styles.Primary)

	e.mu.Lock()
	e.corpus = corpus
	e.snapshot = snapshot
	e.mu.Unlock()
	return snapshot, nil
}

// walkRepo collects all files in the repo, applying ignore patterns.
func (e *Engine) walkRepo(repoPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if e.isIgnored(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			files = append(files, relPath)
		}
		return nil
	})
	return files, err
}

// isIgnored checks whether a path matches any ignore pattern.
func (e *Engine) isIgnored(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range e.cfg.Ignore {
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
		}

		if matched, err := filepath.Match(pattern, relPath); err == nil && matched {
			return true
		}

		// **/*.pb.go style patterns match the file name or the whole path.
		if sub, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matched, err := filepath.Match(sub, filepath.Base(relPath)); err == nil && matched {
				return true
			}
			if matched, err := filepath.Match(sub, relPath); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// runExtractors detects applicable extractors and runs them. An extractor that fails is
// logged and skipped; context cancellation aborts the run.
func (e *Engine) runExtractors(ctx context.Context, repoPath string, files []string, corpus *facts.Corpus) ([]string, error) {
	var usedNames []string

	for _, ext := range e.extractors.Enabled(e.cfg.IsExtractorEnabled) {
		log := e.logger.With("extractor", ext.Name())

		detected, err := ext.Detect(repoPath)
		if err != nil {
			log.Warn("detect failed", "error", err)
			continue
		}
		if !detected {
			log.Debug("not detected")
			continue
		}

		extracted, err := ext.Extract(ctx, repoPath, files)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("extraction failed", "error", err)
			continue
		}

		corpus.Add(extracted...)
		usedNames = append(usedNames, ext.Name())
		log.Info("extractor finished", "facts", len(extracted))
	}

	return usedNames, nil
}

// runRenderers runs all enabled renderers.
func (e *Engine) runRenderers(ctx context.Context, snapshot *facts.Snapshot) ([]string, error) {
	usedNames := []string{}

	for _, rnd := range e.renderers.Enabled(e.cfg.IsRendererEnabled) {
		artifacts, err := rnd.Render(ctx, snapshot)
		if err != nil {
			e.logger.Warn("renderer failed", "renderer", rnd.Name(), "error", err)
			continue
		}

		snapshot.Artifacts = append(snapshot.Artifacts, artifacts...)
		usedNames = append(usedNames, rnd.Name())
	}

	return usedNames, nil
}

// WriteArtifacts writes the renderer artifacts, report.json, snapshot.meta.json and,
// when enabled, facts.jsonl to the output directory under repoPath.
func (e *Engine) WriteArtifacts(repoPath string) error {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return ErrNoSnapshot
	}

	outDir := filepath.Join(repoPath, e.cfg.Output.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, a := range snapshot.Artifacts {
		if err := e.writeFile(outDir, a.Name, a.Content); err != nil {
			return err
		}
	}

	if e.cfg.Output.WriteFacts {
		factsPath := filepath.Join(outDir, FactsFile)
		if err := e.Corpus().WriteJSONLFile(factsPath); err != nil {
			return fmt.Errorf("writing %s: %w", FactsFile, err)
		}
		e.logger.Info("wrote artifact", "path", factsPath)
	}

	for _, name := range []string{ReportFile, MetaFile} {
		data, err := e.GetArtifact(name)
		if err != nil {
			return err
		}
		if err := e.writeFile(outDir, name, data); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	e.logger.Info("wrote artifact", "path", path, "bytes", len(data))
	return nil
}

// GetArtifact returns the content of a named renderer artifact or of one of the
// generated files facts.jsonl, report.json and snapshot.meta.json.
func (e *Engine) GetArtifact(name string) ([]byte, error) {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	switch name {
	case FactsFile:
		var buf bytes.Buffer
		if err := e.Corpus().WriteJSONL(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ReportFile:
		return json.MarshalIndent(snapshot.Report, "", "  ")
	case MetaFile:
		return json.MarshalIndent(snapshot.Meta, "", "  ")
	default:
		for _, a := range snapshot.Artifacts {
			if a.Name == name {
				return a.Content, nil
			}
		}
		return nil, fmt.Errorf("artifact %q not found", name)
	}
}
