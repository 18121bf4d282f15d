package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dejo1307/archstyle/internal/config"
	"github.com/dejo1307/archstyle/internal/engine"
	"github.com/dejo1307/archstyle/internal/extractors/goextractor"
	"github.com/dejo1307/archstyle/internal/renderers/markdown"
)

// --- test helpers ---

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	eng, err := engine.New(cfg, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.RegisterExtractor(goextractor.New(nil))
	eng.RegisterRenderer(markdown.New(0))

	srv, err := New(eng, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

const layeredFacts = `[
  {"path": "src/controllers/order_controller.py", "imports": ["src/services/order_service.py"]},
  {"path": "src/services/order_service.py", "imports": ["src/repositories/order_repository.py"]},
  {"path": "src/repositories/order_repository.py", "hints": ["database:postgres"]}
]`

// --- tool tests ---

func TestAnalyzeFacts(t *testing.T) {
	srv := newTestServer(t)

	res, _, err := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: layeredFacts})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	for _, want := range []string{`"intents"`, `"styles"`, `"separation_of_concerns"`, `"layered"`} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %s", want)
		}
	}
	if got := srv.eng.Corpus().Count(); got != 3 {
		t.Errorf("corpus count = %d, want 3", got)
	}
}

func TestAnalyzeFacts_JSONL(t *testing.T) {
	srv := newTestServer(t)

	jsonl := "{\"path\":\"a/handler.go\"}\n{\"path\":\"a/service.go\"}\n"
	res, _, _ := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: jsonl})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if got := srv.eng.Corpus().Count(); got != 2 {
		t.Errorf("corpus count = %d, want 2", got)
	}
}

func TestAnalyzeFacts_NotAList(t *testing.T) {
	srv := newTestServer(t)

	res, _, err := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: `"facts"`})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected error result for scalar input")
	}
	if !strings.Contains(resultText(t, res), "invalid facts") {
		t.Errorf("unexpected message: %s", resultText(t, res))
	}
}

func TestGetReport_BeforeAnalysis(t *testing.T) {
	srv := newTestServer(t)

	res, _, _ := srv.getReport(context.Background(), nil, getReportArgs{})
	if !res.IsError {
		t.Error("expected error result before any analysis")
	}
}

func TestGetReport_Formats(t *testing.T) {
	srv := newTestServer(t)
	if res, _, _ := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: layeredFacts}); res.IsError {
		t.Fatalf("analyze: %s", resultText(t, res))
	}

	tests := []struct {
		format  string
		want    string
		isError bool
	}{
		{"", "# Architecture Report", false},
		{"markdown", "## Design Intents", false},
		{"JSON", `"by_name"`, false},
		{"summary", "", false},
		{"html", "unknown format", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			res, _, _ := srv.getReport(context.Background(), nil, getReportArgs{Format: tt.format})
			if res.IsError != tt.isError {
				t.Fatalf("IsError = %v, want %v: %s", res.IsError, tt.isError, resultText(t, res))
			}
			if !strings.Contains(resultText(t, res), tt.want) {
				t.Errorf("result missing %q", tt.want)
			}
		})
	}

	res, _, _ := srv.getReport(context.Background(), nil, getReportArgs{Format: "summary"})
	if got, want := resultText(t, res), srv.eng.Snapshot().Report.Summary; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestQueryFacts(t *testing.T) {
	srv := newTestServer(t)

	res, _, _ := srv.queryFacts(context.Background(), nil, queryFactsArgs{})
	if !res.IsError {
		t.Error("expected error result with an empty corpus")
	}

	if res, _, _ := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: layeredFacts}); res.IsError {
		t.Fatalf("analyze: %s", resultText(t, res))
	}

	tests := []struct {
		name    string
		args    queryFactsArgs
		want    []string
		notWant []string
	}{
		{"path prefix", queryFactsArgs{Path: "src/services"}, []string{"order_service.py"}, []string{"order_controller.py"}},
		{"hint", queryFactsArgs{Hint: "POSTGRES"}, []string{"order_repository.py"}, []string{"order_service.py"}},
		{"no match", queryFactsArgs{Path: "web/"}, []string{"null"}, []string{"order_"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, _ := srv.queryFacts(context.Background(), nil, tt.args)
			text := resultText(t, res)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("missing %q in %s", w, text)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(text, w) {
					t.Errorf("unexpected %q in %s", w, text)
				}
			}
		})
	}
}

func TestAnalyzeRepository(t *testing.T) {
	repo := t.TempDir()
	files := map[string]string{
		"go.mod":                           "module example.com/shop\n\ngo 1.22\n",
		"internal/orders/service.go":       "package orders\n\ntype Repository interface {\n\tSave(id string) error\n}\n\ntype Service struct {\n\trepo Repository\n}\n\nfunc NewService(repo Repository) *Service {\n\treturn &Service{repo: repo}\n}\n",
		"internal/orders/postgres_repo.go": "package orders\n\ntype postgresRepo struct{}\n\nfunc (postgresRepo) Save(id string) error { return nil }\n",
	}
	for name, content := range files {
		path := filepath.Join(repo, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	srv := newTestServer(t)
	res, _, err := srv.analyzeRepository(context.Background(), nil, analyzeRepositoryArgs{RepoPath: repo})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Analysis complete.") || !strings.Contains(text, "- Components: 2") {
		t.Errorf("unexpected summary:\n%s", text)
	}

	for _, name := range []string{markdown.ArtifactName, engine.ReportFile, engine.FactsFile} {
		if _, err := os.Stat(filepath.Join(repo, ".archstyle", name)); err != nil {
			t.Errorf("artifact %s not written: %v", name, err)
		}
	}
}

func TestAnalyzeRepository_MissingRepo(t *testing.T) {
	srv := newTestServer(t)
	res, _, _ := srv.analyzeRepository(context.Background(), nil, analyzeRepositoryArgs{RepoPath: filepath.Join(t.TempDir(), "missing")})
	if !res.IsError {
		t.Error("expected error result for a missing repository")
	}
}

// --- resource tests ---

func TestResourceHandler(t *testing.T) {
	srv := newTestServer(t)
	report := resources[0]

	if _, err := srv.resourceHandler(report)(context.Background(), nil); err == nil {
		t.Error("expected error before any analysis")
	}

	if res, _, _ := srv.analyzeFacts(context.Background(), nil, analyzeFactsArgs{Facts: layeredFacts}); res.IsError {
		t.Fatalf("analyze: %s", resultText(t, res))
	}

	for _, r := range resources {
		t.Run(r.uri, func(t *testing.T) {
			got, err := srv.resourceHandler(r)(context.Background(), nil)
			if err != nil {
				t.Fatalf("read %s: %v", r.uri, err)
			}
			if len(got.Contents) != 1 || got.Contents[0].URI != r.uri || got.Contents[0].Text == "" {
				t.Errorf("unexpected contents for %s: %+v", r.uri, got.Contents)
			}
		})
	}
}

func TestErrorResult(t *testing.T) {
	res := errorResult("boom")
	if !res.IsError {
		t.Error("IsError not set")
	}
	if got := resultText(t, res); got != "boom" {
		t.Errorf("text = %q", got)
	}
	if textResult("ok").IsError {
		t.Error("textResult must not be an error")
	}
}
