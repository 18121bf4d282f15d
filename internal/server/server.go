package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dejo1307/archstyle/internal/config"
	"github.com/dejo1307/archstyle/internal/engine"
	"github.com/dejo1307/archstyle/internal/facts"
	"github.com/dejo1307/archstyle/internal/renderers/markdown"
)

// maxQueryResults caps the facts returned by query_facts.
const maxQueryResults = 100

// Server wraps the MCP server and connects it to the analysis engine.
type Server struct {
	mcp    *mcp.Server
	eng    *engine.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new MCP server wired to the given engine.
func New(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		eng:    eng,
		cfg:    cfg,
		logger: logger.With("component", "server"),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "archstyle",
		Version: "0.1.0",
	}, nil)

	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// resource describes one engine artifact exposed as an MCP resource.
type resource struct {
	uri         string
	name        string
	description string
	artifact    string
	mimeType    string
}

var resources = []resource{
	{"arch://report/summary", "Architecture Report", "Markdown report of design intents and architectural styles", markdown.ArtifactName, "text/markdown"},
	{"arch://report/json", "Architecture Report (JSON)", "The aggregate report as JSON", engine.ReportFile, "application/json"},
	{"arch://report/facts", "Component Facts", "All extracted component facts in JSONL format", engine.FactsFile, "application/jsonl"},
}

// registerResources adds MCP resources for the report artifacts.
func (s *Server) registerResources() {
	for _, r := range resources {
		s.mcp.AddResource(&mcp.Resource{
			URI:         r.uri,
			Name:        r.name,
			Description: r.description,
			MIMEType:    r.mimeType,
		}, s.resourceHandler(r))
	}
}

func (s *Server) resourceHandler(r resource) func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact(r.artifact)
		if err != nil {
			return nil, fmt.Errorf("no report available: %w (run analyze_repository first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: r.uri, Text: string(content), MIMEType: r.mimeType},
			},
		}, nil
	}
}

// analyzeRepositoryArgs are the arguments for the analyze_repository tool.
type analyzeRepositoryArgs struct {
	RepoPath string `json:"repo_path,omitempty" jsonschema:"Path to the repository to analyze. Defaults to the configured repo path."`
}

// analyzeFactsArgs are the arguments for the analyze_facts tool.
type analyzeFactsArgs struct {
	Facts string `json:"facts" jsonschema:"Component facts as a JSON array or JSONL stream"`
}

// getReportArgs are the arguments for the get_report tool.
type getReportArgs struct {
	Format string `json:"format,omitempty" jsonschema:"Report format: markdown (default), json, or summary"`
}

// queryFactsArgs are the arguments for the query_facts tool.
type queryFactsArgs struct {
	Path     string `json:"path,omitempty" jsonschema:"Filter by path prefix"`
	Language string `json:"language,omitempty" jsonschema:"Filter by language, e.g. go, typescript, java, manifest"`
	Hint     string `json:"hint,omitempty" jsonschema:"Filter by hint or identifier substring, e.g. endpoint or database"`
}

// registerTools adds MCP tools for analysis and fact querying.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_repository",
		Description: "Analyze a repository: extract component facts, score separation of concerns, information hiding and dependency inversion, and detect layered, hexagonal, clean, microservice and event-driven styles.",
	}, s.analyzeRepository)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_facts",
		Description: "Analyze component facts supplied by the caller instead of extracting them from a repository.",
	}, s.analyzeFacts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_report",
		Description: "Return the report of the last analysis as markdown, JSON, or a one-paragraph summary.",
	}, s.getReport)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_facts",
		Description: "Query the component facts of the last analysis by path prefix, language, or hint. Returns matching facts as JSON.",
	}, s.queryFacts)
}

func (s *Server) analyzeRepository(ctx context.Context, req *mcp.CallToolRequest, args analyzeRepositoryArgs) (*mcp.CallToolResult, any, error) {
	repoPath := args.RepoPath
	if repoPath == "" {
		repoPath = s.cfg.Repo
	}

	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid repo path: %v", err)), nil, nil
	}

	snapshot, err := s.eng.GenerateSnapshot(ctx, absRepo)
	if err != nil {
		return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil, nil
	}

	if err := s.eng.WriteArtifacts(absRepo); err != nil {
		s.logger.Warn("failed to write artifacts", "error", err)
	}

	summary := fmt.Sprintf(
		"Analysis complete.\n\n"+
			"- Repository: %s\n"+
			"- Components: %d\n"+
			"- Extractors: %v\n"+
			"- Primary style: %s\n"+
			"- Overall intent score: %.2f\n"+
			"- Duration: %s\n\n"+
			"%s\n\n"+
			"Read arch://report/summary for the full report.",
		snapshot.Meta.RepoPath,
		snapshot.Meta.FactCount,
		snapshot.Meta.Extractors,
		snapshot.Report.Styles.Primary,
		snapshot.Report.Intents.Overall,
		snapshot.Meta.Duration,
		snapshot.Report.Summary,
	)
	return textResult(summary), nil, nil
}

func (s *Server) analyzeFacts(ctx context.Context, req *mcp.CallToolRequest, args analyzeFactsArgs) (*mcp.CallToolResult, any, error) {
	ff, err := facts.DecodeFacts(strings.NewReader(args.Facts))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid facts: %v", err)), nil, nil
	}

	snapshot, err := s.eng.AnalyzeFacts(ctx, ff)
	if err != nil {
		return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil, nil
	}

	data, err := json.MarshalIndent(snapshot.Report, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal report: %v", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) getReport(ctx context.Context, req *mcp.CallToolRequest, args getReportArgs) (*mcp.CallToolResult, any, error) {
	snapshot := s.eng.Snapshot()
	if snapshot == nil {
		return errorResult("No report available. Run analyze_repository first."), nil, nil
	}

	var name string
	switch strings.ToLower(args.Format) {
	case "", "markdown", "md":
		name = markdown.ArtifactName
	case "json":
		name = engine.ReportFile
	case "summary":
		return textResult(snapshot.Report.Summary), nil, nil
	default:
		return errorResult(fmt.Sprintf("unknown format %q (use markdown, json, or summary)", args.Format)), nil, nil
	}

	content, err := s.eng.GetArtifact(name)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(string(content)), nil, nil
}

func (s *Server) queryFacts(ctx context.Context, req *mcp.CallToolRequest, args queryFactsArgs) (*mcp.CallToolResult, any, error) {
	corpus := s.eng.Corpus()
	if corpus.Count() == 0 {
		return errorResult("No facts available. Run analyze_repository first."), nil, nil
	}

	var candidates []facts.ComponentFact
	if args.Language != "" {
		candidates = corpus.ByLanguage(args.Language)
	} else {
		candidates = corpus.All()
	}

	var results []facts.ComponentFact
	for _, f := range candidates {
		if args.Path != "" && !strings.HasPrefix(f.Path, args.Path) {
			continue
		}
		if args.Hint != "" && !hasKeyword(&f, args.Hint) {
			continue
		}
		results = append(results, f)
	}

	total := len(results)
	if total > maxQueryResults {
		results = results[:maxQueryResults]
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
	}

	text := string(data)
	if total > maxQueryResults {
		text += fmt.Sprintf("\n\n... (showing %d of %d results, refine your query)", maxQueryResults, total)
	}
	return textResult(text), nil, nil
}

func hasKeyword(f *facts.ComponentFact, sub string) bool {
	sub = strings.ToLower(sub)
	for _, k := range f.Keywords() {
		if strings.Contains(strings.ToLower(k), sub) {
			return true
		}
	}
	return false
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
