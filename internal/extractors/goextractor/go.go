package goextractor

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dejo1307/archstyle/internal/facts"
)

// GoExtractor extracts component facts from Go source code using go/ast.
type GoExtractor struct {
	logger *slog.Logger
}

// New creates a new GoExtractor. A nil logger means slog.Default.
func New(logger *slog.Logger) *GoExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoExtractor{logger: logger.With("component", "go-extractor")}
}

func (e *GoExtractor) Name() string {
	return "go"
}

// Detect returns true if the repository contains a go.mod file.
func (e *GoExtractor) Detect(repoPath string) (bool, error) {
	_, err := os.Stat(filepath.Join(repoPath, "go.mod"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// diFrameworks are import path fragments of dependency injection containers.
var diFrameworks = []string{"go.uber.org/fx", "go.uber.org/dig", "github.com/google/wire", "github.com/samber/do"}

// messageCalls are method names that send or receive messages on a broker or bus.
var messageCalls = map[string]bool{
	"Publish": true, "Subscribe": true, "Produce": true, "Consume": true, "Emit": true,
	"Dispatch": true, "SendMessage": true, "ReceiveMessage": true, "WriteMessages": true,
	"ReadMessage": true, "FetchMessage": true, "QueueSubscribe": true, "Notify": true,
}

// constructorPrefixes mark functions that create values for their callers.
var constructorPrefixes = []string{"New", "Make", "Create", "Build"}

type parsedFile struct {
	rel  string
	dir  string
	file *ast.File
}

// Extract parses Go files and emits one fact per file, in input order. Generated files and
// files that fail to parse are skipped.
func (e *GoExtractor) Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error) {
	fset := token.NewFileSet()
	modulePath := readModulePath(repoPath)

	var parsed []parsedFile
	for _, relFile := range files {
		if !strings.HasSuffix(relFile, ".go") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := os.ReadFile(filepath.Join(repoPath, relFile))
		if err != nil {
			e.logger.Warn("error reading file", "file", relFile, "error", err)
			continue
		}
		f, err := parser.ParseFile(fset, relFile, src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			e.logger.Warn("error parsing file", "file", relFile, "error", err)
			continue
		}
		if ast.IsGenerated(f) {
			continue
		}

		rel := filepath.ToSlash(relFile)
		parsed = append(parsed, parsedFile{rel: rel, dir: path.Dir(rel), file: f})
	}

	idx := buildIndex(parsed)
	result := make([]facts.ComponentFact, 0, len(parsed))
	for _, p := range parsed {
		result = append(result, e.extractFile(p, modulePath, idx))
	}

	e.logger.Debug("extraction complete", "files", len(result))
	return result, nil
}

func (e *GoExtractor) extractFile(p parsedFile, modulePath string, idx *index) facts.ComponentFact {
	cf := facts.ComponentFact{
		Path:     p.rel,
		Language: "go",
		// Capitalization is Go's visibility mechanism.
		ExplicitExports: true,
	}
	var hints hintSet

	for _, imp := range p.file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		for _, fw := range diFrameworks {
			if strings.HasPrefix(importPath, fw) {
				cf.FrameworkInjection = true
				hints.add("dependency_injection")
			}
		}
		switch classifyImport(importPath, modulePath) {
		case "internal":
			if target := idx.representative(strings.TrimPrefix(strings.TrimPrefix(importPath, modulePath), "/")); target != "" {
				cf.Imports = append(cf.Imports, target)
			}
		case "external":
			cf.Imports = append(cf.Imports, importPath)
		}
	}

	methods := make(map[string][]string) // receiver type -> method names
	for _, decl := range p.file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.extractFunc(&cf, d, p.dir, idx, methods)
		case *ast.GenDecl:
			e.extractGenDecl(&cf, d, p.dir, idx)
		}
	}
	for _, names := range methods {
		if idx.implemented(names) {
			cf.ImplementsInterface = true
			break
		}
	}

	ast.Inspect(p.file, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.GoStmt:
			cf.AsyncConstructs++
			hints.add("goroutine")
		case *ast.SelectStmt, *ast.SendStmt, *ast.ChanType:
			cf.AsyncConstructs++
		case *ast.UnaryExpr:
			if x.Op == token.ARROW {
				cf.AsyncConstructs++
			}
		}
		return true
	})

	for _, call := range extractCalls(p.file) {
		if messageCalls[call] {
			cf.MessageConstructs++
		}
	}

	if routes := extractRoutes(p.file); len(routes) > 0 {
		hints.add("http_router:" + routes[0].framework)
		for _, r := range routes {
			hints.add(r.hint())
		}
	}
	for _, h := range extractStorage(p.file) {
		hints.add(h)
	}

	cf.Hints = hints.list
	return cf
}

func (e *GoExtractor) extractFunc(cf *facts.ComponentFact, fn *ast.FuncDecl, dir string, idx *index, methods map[string][]string) {
	countMember(cf, fn.Name)

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		receiver := typeExprToString(fn.Recv.List[0].Type)
		methods[receiver] = append(methods[receiver], fn.Name.Name)
		return
	}

	cf.Identifiers = append(cf.Identifiers, fn.Name.Name)

	if !hasConstructorPrefix(fn.Name.Name) || fn.Type.Results == nil {
		return
	}
	cf.CreationPoints++
	if fn.Type.Params == nil {
		return
	}
	for _, param := range fn.Type.Params.List {
		if idx.isInterface(dir, param.Type) {
			cf.ConstructorInjection = true
			cf.DependsOnInterface = true
		}
		if _, ok := param.Type.(*ast.FuncType); ok {
			cf.ConstructorInjection = true
		}
	}
}

func (e *GoExtractor) extractGenDecl(cf *facts.ComponentFact, gd *ast.GenDecl, dir string, idx *index) {
	for _, spec := range gd.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(cf, s, dir, idx)
		case *ast.ValueSpec:
			for _, name := range s.Names {
				if name.Name == "_" {
					// var _ Iface = (*T)(nil)
					if s.Type != nil && idx.isInterface(dir, s.Type) {
						cf.ImplementsInterface = true
					}
					continue
				}
				countMember(cf, name)
			}
		}
	}
}

func (e *GoExtractor) extractTypeSpec(cf *facts.ComponentFact, ts *ast.TypeSpec, dir string, idx *index) {
	countMember(cf, ts.Name)
	cf.Identifiers = append(cf.Identifiers, ts.Name.Name)

	switch t := ts.Type.(type) {
	case *ast.InterfaceType:
		cf.DefinesInterface = true
		cf.InterfaceCount++
		cf.AbstractTypes++
	case *ast.FuncType:
		cf.AbstractTypes++
	case *ast.StructType:
		cf.ConcreteTypes++
		if t.Fields == nil {
			return
		}
		for _, field := range t.Fields.List {
			if idx.isInterface(dir, field.Type) {
				if len(field.Names) == 0 {
					cf.ImplementsInterface = true
				} else {
					cf.DependsOnInterface = true
				}
			}
			for _, name := range field.Names {
				countMember(cf, name)
			}
		}
	default:
		cf.ConcreteTypes++
	}
}

func countMember(cf *facts.ComponentFact, name *ast.Ident) {
	if name.IsExported() {
		cf.PublicMembers++
	} else {
		cf.PrivateMembers++
	}
}

func hasConstructorPrefix(name string) bool {
	for _, p := range constructorPrefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			return true
		}
	}
	return false
}

// hintSet keeps hints unique and in first-seen order.
type hintSet struct {
	seen map[string]bool
	list []string
}

func (h *hintSet) add(s string) {
	if h.seen == nil {
		h.seen = make(map[string]bool)
	}
	if s == "" || h.seen[s] {
		return
	}
	h.seen[s] = true
	h.list = append(h.list, s)
}

// index holds what is known about the whole extraction set: interface declarations and the
// files of each package directory.
type index struct {
	local      map[string]bool // dir + "." + name
	qualified  map[string]bool // package name + "." + name
	methodSets [][]string
	packages   map[string][]string // dir -> files
}

// wellKnownInterfaces are standard library interfaces commonly used as dependencies.
var wellKnownInterfaces = map[string]bool{
	"io.Reader": true, "io.Writer": true, "io.ReadWriter": true, "io.Closer": true,
	"io.ReadCloser": true, "io.WriteCloser": true, "http.Handler": true, "http.RoundTripper": true,
	"fs.FS": true, "slog.Handler": true,
}

func buildIndex(parsed []parsedFile) *index {
	idx := &index{
		local:     make(map[string]bool),
		qualified: make(map[string]bool),
		packages:  make(map[string][]string),
	}
	for _, p := range parsed {
		idx.packages[p.dir] = append(idx.packages[p.dir], p.rel)
		ast.Inspect(p.file, func(n ast.Node) bool {
			ts, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				return true
			}
			idx.local[p.dir+"."+ts.Name.Name] = true
			idx.qualified[p.file.Name.Name+"."+ts.Name.Name] = true
			var names []string
			for _, m := range it.Methods.List {
				if _, ok := m.Type.(*ast.FuncType); !ok {
					continue
				}
				for _, name := range m.Names {
					names = append(names, name.Name)
				}
			}
			if len(names) > 0 {
				idx.methodSets = append(idx.methodSets, names)
			}
			return false
		})
	}
	for dir := range idx.packages {
		sort.Strings(idx.packages[dir])
	}
	return idx
}

// isInterface reports whether expr names an interface type visible from dir.
func (idx *index) isInterface(dir string, expr ast.Expr) bool {
	if it, ok := expr.(*ast.InterfaceType); ok {
		return it.Methods != nil && len(it.Methods.List) > 0
	}
	name := typeExprToString(expr)
	if name == "" {
		return false
	}
	if strings.Contains(name, ".") {
		return idx.qualified[name] || wellKnownInterfaces[name]
	}
	return idx.local[dir+"."+name]
}

// implemented reports whether methods covers the full method set of any known interface.
func (idx *index) implemented(methods []string) bool {
	have := make(map[string]bool, len(methods))
	for _, m := range methods {
		have[m] = true
	}
	for _, set := range idx.methodSets {
		all := true
		for _, m := range set {
			if !have[m] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// representative returns the file standing in for package dir as an import target: the
// file named after the directory when present, otherwise the first file by name.
func (idx *index) representative(dir string) string {
	if dir == "" {
		dir = "."
	}
	files := idx.packages[dir]
	if len(files) == 0 {
		return ""
	}
	want := path.Base(dir) + ".go"
	for _, f := range files {
		if path.Base(f) == want {
			return f
		}
	}
	for _, f := range files {
		if !strings.HasSuffix(f, "_test.go") {
			return f
		}
	}
	return files[0]
}

// extractCalls walks an AST node and returns the called function or method names.
func extractCalls(node ast.Node) []string {
	var calls []string
	ast.Inspect(node, func(n ast.Node) bool {
		ce, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		switch fn := ce.Fun.(type) {
		case *ast.Ident:
			calls = append(calls, fn.Name)
		case *ast.SelectorExpr:
			calls = append(calls, fn.Sel.Name)
		}
		return true
	})
	return calls
}

// readModulePath reads the module path from go.mod in the given repo.
func readModulePath(repoPath string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, "go.mod"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

// classifyImport returns "stdlib", "internal", or "external" for a Go import path.
func classifyImport(importPath, modulePath string) string {
	firstSegment := importPath
	if i := strings.Index(importPath, "/"); i >= 0 {
		firstSegment = importPath[:i]
	}
	if modulePath != "" && (importPath == modulePath || strings.HasPrefix(importPath, modulePath+"/")) {
		return "internal"
	}
	if !strings.Contains(firstSegment, ".") {
		return "stdlib"
	}
	return "external"
}

// typeExprToString converts a type expression to a string representation.
func typeExprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return typeExprToString(t.X)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	case *ast.IndexExpr:
		return typeExprToString(t.X)
	case *ast.IndexListExpr:
		return typeExprToString(t.X)
	}
	return ""
}
