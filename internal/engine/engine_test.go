package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/archstyle/internal/config"
	"github.com/dejo1307/archstyle/internal/facts"
)

type stubExtractor struct {
	name     string
	detected bool
	err      error
	seen     []string
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Detect(string) (bool, error) { return s.detected, nil }

func (s *stubExtractor) Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.seen = files
	var out []facts.ComponentFact
	for _, f := range files {
		if strings.HasSuffix(f, ".go") {
			out = append(out, facts.ComponentFact{Path: filepath.ToSlash(f), Language: "go"})
		}
	}
	return out, nil
}

type stubRenderer struct{}

func (stubRenderer) Name() string { return "stub" }

func (stubRenderer) Render(ctx context.Context, snapshot *facts.Snapshot) ([]facts.Artifact, error) {
	return []facts.Artifact{{Name: "stub.md", Content: []byte(snapshot.Report.Summary), Type: "text/markdown"}}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Extractors = []string{"stub", "broken", "absent"}
	cfg.Renderers = []string{"stub"}
	return cfg
}

func writeRepo(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		abs := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte("package x\n"), 0o644))
	}
	return dir
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		name     string
		relPath  string
		patterns []string
		want     bool
	}{
		{"vendor directory", "vendor/foo/bar.go", []string{"vendor/**"}, true},
		{"vendor dir itself", "vendor", []string{"vendor/**"}, true},
		{"node_modules", "node_modules/react/index.js", []string{"node_modules/**"}, true},
		{"git directory", ".git/HEAD", []string{".git/**"}, true},
		{"test files with ** prefix", "src/main_test.go", []string{"**/*_test.go"}, true},
		{"non-test file not ignored", "src/main.go", []string{"**/*_test.go"}, false},
		{"spec files", "src/utils.spec.ts", []string{"**/*.spec.ts"}, true},
		{"output dir", ".archstyle/facts.jsonl", []string{".archstyle/**"}, true},
		{"normal source not ignored", "src/app.go", []string{"vendor/**"}, false},
		{"nested test file", "internal/pkg/foo_test.go", []string{"**/*_test.go"}, true},
		{"deeply nested vendor", "vendor/github.com/foo/bar/baz.go", []string{"vendor/**"}, true},
		{"plain glob", "README.md", []string{"*.md"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Ignore = tt.patterns

			eng, err := New(cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, eng.isIgnored(tt.relPath), "patterns %v", tt.patterns)
		})
	}
}

func TestGenerateSnapshot(t *testing.T) {
	repo := writeRepo(t,
		"internal/orders/service.go",
		"internal/orders/repository.go",
		"vendor/lib/lib.go",
		"README.md",
	)

	eng, err := New(testConfig(), nil)
	require.NoError(t, err)

	stub := &stubExtractor{name: "stub", detected: true}
	eng.RegisterExtractor(stub)
	eng.RegisterExtractor(&stubExtractor{name: "broken", detected: true, err: errors.New("boom")})
	eng.RegisterExtractor(&stubExtractor{name: "absent"})
	eng.RegisterExtractor(&stubExtractor{name: "disabled", detected: true})
	eng.RegisterRenderer(stubRenderer{})

	snap, err := eng.GenerateSnapshot(context.Background(), repo)
	require.NoError(t, err)

	assert.Len(t, stub.seen, 3, "vendor is ignored by default")
	assert.Equal(t, []string{"stub"}, snap.Meta.Extractors)
	assert.Equal(t, []string{"stub"}, snap.Meta.Renderers)
	assert.Equal(t, 2, snap.Meta.FactCount)
	assert.Equal(t, []string{"internal/orders/repository.go", "internal/orders/service.go"}, []string{snap.Facts[0].Path, snap.Facts[1].Path})
	require.NotNil(t, snap.Report)
	assert.Equal(t, snap.Report.Styles.Primary, snap.Meta.PrimaryStyle)
	require.Len(t, snap.Artifacts, 1)
	assert.Equal(t, snap.Report.Summary, string(snap.Artifacts[0].Content))

	assert.Same(t, snap, eng.Snapshot())
	assert.Equal(t, 2, eng.Corpus().Count())
}

func TestGenerateSnapshot_Cancelled(t *testing.T) {
	repo := writeRepo(t, "main.go")
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	eng.RegisterExtractor(&stubExtractor{name: "stub", detected: true, err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.GenerateSnapshot(ctx, repo)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, eng.Snapshot())
}

func TestAnalyzeFacts(t *testing.T) {
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)

	snap, err := eng.AnalyzeFacts(context.Background(), []facts.ComponentFact{
		{Path: "src/controllers/order_controller.py", Imports: []string{"src/services/order_service.py"}},
		{Path: "src/services/order_service.py"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Meta.FactCount)
	assert.Empty(t, snap.Meta.RepoPath)
	assert.Contains(t, snap.Report.Intents.Results, "separation_of_concerns")
}

func TestAnalyzeFacts_Empty(t *testing.T) {
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)

	snap, err := eng.AnalyzeFacts(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Meta.FactCount)
	assert.Zero(t, snap.Report.Intents.Overall)
}

func TestWriteArtifacts(t *testing.T) {
	repo := writeRepo(t, "cmd/app/main.go")
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	eng.RegisterExtractor(&stubExtractor{name: "stub", detected: true})
	eng.RegisterRenderer(stubRenderer{})

	assert.ErrorIs(t, eng.WriteArtifacts(repo), ErrNoSnapshot)

	_, err = eng.GenerateSnapshot(context.Background(), repo)
	require.NoError(t, err)
	require.NoError(t, eng.WriteArtifacts(repo))

	outDir := filepath.Join(repo, ".archstyle")
	for _, name := range []string{"stub.md", FactsFile, ReportFile, MetaFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	// A second run reads the facts back without extractors.
	loaded, err := New(testConfig(), nil)
	require.NoError(t, err)
	snap, err := loaded.LoadFacts(context.Background(), filepath.Join(outDir, FactsFile))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Meta.FactCount)
	assert.Equal(t, "cmd/app/main.go", snap.Facts[0].Path)
}

func TestGetArtifact(t *testing.T) {
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)

	_, err = eng.GetArtifact(ReportFile)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = eng.AnalyzeFacts(context.Background(), []facts.ComponentFact{{Path: "a.go"}})
	require.NoError(t, err)

	data, err := eng.GetArtifact(FactsFile)
	require.NoError(t, err)
	assert.Equal(t, "{\"path\":\"a.go\"}\n", string(data))

	data, err = eng.GetArtifact(ReportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"intents"`)

	_, err = eng.GetArtifact("missing.md")
	assert.Error(t, err)
}

func TestGenerateSnapshot_ConcurrentCalls(t *testing.T) {
	eng, err := New(testConfig(), nil)
	require.NoError(t, err)
	eng.RegisterExtractor(&stubExtractor{name: "absent"})

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = eng.GenerateSnapshot(context.Background(), t.TempDir())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.NotNil(t, eng.Snapshot())
}
