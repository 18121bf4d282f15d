package tsextractor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dejo1307/archstyle/internal/facts"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TSExtractor extracts component facts from TypeScript/TSX source code using tree-sitter.
type TSExtractor struct {
	logger *slog.Logger
}

// New creates a new TSExtractor. A nil logger means slog.Default.
func New(logger *slog.Logger) *TSExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TSExtractor{logger: logger.With("component", "ts-extractor")}
}

func (e *TSExtractor) Name() string {
	return "typescript"
}

// Detect returns true if the repository contains tsconfig.json or a package.json with TypeScript dependencies.
func (e *TSExtractor) Detect(repoPath string) (bool, error) {
	if _, err := os.Stat(filepath.Join(repoPath, "tsconfig.json")); err == nil {
		return true, nil
	}
	return hasDependency(repoPath, "typescript"), nil
}

var (
	creationName = regexp.MustCompile(`^(create|make|build|new)[A-Z_]`)

	// diPackages and diDecorators mark container-managed injection.
	diPackages   = map[string]bool{"inversify": true, "tsyringe": true, "typedi": true, "@nestjs/core": true}
	diDecorators = map[string]bool{"Injectable": true, "Inject": true, "InjectRepository": true, "injectable": true, "inject": true, "singleton": true, "Service": true}

	// messageCalls are method names that send or receive messages on a broker or bus.
	messageCalls = map[string]bool{
		"publish": true, "subscribe": true, "emit": true, "produce": true, "consume": true,
		"dispatch": true, "sendMessage": true, "sendToQueue": true, "sendBatch": true,
	}
	messageDecorators = map[string]bool{"EventPattern": true, "MessagePattern": true, "OnEvent": true, "Subscribe": true, "Process": true}

	// httpVerbs are express-style router methods and Nest route decorators.
	httpVerbs = map[string]string{
		"get": "GET", "post": "POST", "put": "PUT", "delete": "DELETE", "patch": "PATCH",
		"Get": "GET", "Post": "POST", "Put": "PUT", "Delete": "DELETE", "Patch": "PATCH",
	}
)

type tsFile struct {
	rel  string
	src  []byte
	tree *sitter.Tree
}

// Extract parses TypeScript/TSX files and emits one fact per file, in input order.
func (e *TSExtractor) Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error) {
	isNextJS := detectNextJS(repoPath)
	// tsconfig path aliases, e.g. "@/*" -> "src/*"
	aliases := parseTSPathAliases(repoPath)

	parser := sitter.NewParser()
	defer parser.Close()

	var parsed []tsFile
	defer func() {
		for _, p := range parsed {
			p.tree.Close()
		}
	}()

	for _, relFile := range files {
		if !isTypeScriptFile(relFile) {
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

		lang := typescript.LanguageTypescript()
		if strings.HasSuffix(strings.ToLower(relFile), ".tsx") {
			lang = typescript.LanguageTSX()
		}
		if err := parser.SetLanguage(sitter.NewLanguage(lang)); err != nil {
			e.logger.Warn("error loading grammar", "file", relFile, "error", err)
			continue
		}
		tree := parser.Parse(src, nil)
		if tree == nil {
			e.logger.Warn("error parsing file", "file", relFile)
			continue
		}
		parsed = append(parsed, tsFile{rel: filepath.ToSlash(relFile), src: src, tree: tree})
	}

	abstractions := collectAbstractions(parsed)
	result := make([]facts.ComponentFact, 0, len(parsed))
	for _, p := range parsed {
		result = append(result, extractFile(p, isNextJS, aliases, abstractions))
	}

	e.logger.Debug("extraction complete", "files", len(result))
	return result, nil
}

// collectAbstractions returns the names of all interfaces and abstract classes.
func collectAbstractions(parsed []tsFile) map[string]bool {
	names := make(map[string]bool)
	for _, p := range parsed {
		walk(p.tree.RootNode(), func(n *sitter.Node) {
			switch n.Kind() {
			case "interface_declaration", "abstract_class_declaration":
				if name := n.ChildByFieldName("name"); name != nil {
					names[nodeText(name, p.src)] = true
				}
			}
		})
	}
	return names
}

// visitor accumulates the fact of one file.
type visitor struct {
	cf           facts.ComponentFact
	hints        hintSet
	src          []byte
	dir          string
	aliases      map[string]string
	abstractions map[string]bool
}

func extractFile(p tsFile, isNextJS bool, aliases map[string]string, abstractions map[string]bool) facts.ComponentFact {
	v := &visitor{
		cf:           facts.ComponentFact{Path: p.rel, Language: "typescript"},
		src:          p.src,
		dir:          path.Dir(p.rel),
		aliases:      aliases,
		abstractions: abstractions,
	}

	root := p.tree.RootNode()
	for i := range root.ChildCount() {
		v.topLevel(root.Child(i), false)
	}
	walk(root, v.visit)

	if isNextJS {
		if method, route, ok := nextRoute(p.rel); ok {
			v.hints.add("endpoint " + method + " " + route)
		}
	}

	v.cf.Hints = v.hints.list
	return v.cf
}

func (v *visitor) topLevel(node *sitter.Node, exported bool) {
	switch node.Kind() {
	case "import_statement":
		v.addImport(node.ChildByFieldName("source"))

	case "export_statement":
		v.cf.ExplicitExports = true
		if source := node.ChildByFieldName("source"); source != nil {
			v.addImport(source)
		}
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			v.topLevel(decl, true)
		}

	case "class_declaration", "abstract_class_declaration":
		v.declare(node.ChildByFieldName("name"), exported, true)
		if node.Kind() == "abstract_class_declaration" {
			v.cf.AbstractTypes++
		} else {
			v.cf.ConcreteTypes++
		}
		if heritage := findChildByKind(node, "class_heritage"); heritage != nil {
			if findChildByKind(heritage, "implements_clause") != nil {
				v.cf.ImplementsInterface = true
			}
			if ext := findChildByKind(heritage, "extends_clause"); ext != nil {
				for i := range ext.ChildCount() {
					if v.abstractions[nodeText(ext.Child(i), v.src)] {
						v.cf.ImplementsInterface = true
					}
				}
			}
		}
		if body := node.ChildByFieldName("body"); body != nil {
			v.classBody(body)
		}

	case "interface_declaration":
		v.declare(node.ChildByFieldName("name"), exported, true)
		v.cf.DefinesInterface = true
		v.cf.InterfaceCount++
		v.cf.AbstractTypes++

	case "type_alias_declaration":
		v.declare(node.ChildByFieldName("name"), exported, true)

	case "enum_declaration":
		v.declare(node.ChildByFieldName("name"), exported, true)
		v.cf.ConcreteTypes++

	case "function_declaration", "generator_function_declaration":
		name := node.ChildByFieldName("name")
		v.declare(name, exported, true)
		if name != nil && creationName.MatchString(nodeText(name, v.src)) {
			v.cf.CreationPoints++
		}

	case "lexical_declaration", "variable_declaration":
		for i := range node.ChildCount() {
			decl := node.Child(i)
			if decl.Kind() != "variable_declarator" {
				continue
			}
			name := decl.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				continue
			}
			isFunc := false
			if value := decl.ChildByFieldName("value"); value != nil {
				isFunc = value.Kind() == "arrow_function" || value.Kind() == "function_expression"
			}
			v.declare(name, exported, isFunc)
			if isFunc && creationName.MatchString(nodeText(name, v.src)) {
				v.cf.CreationPoints++
			}
		}
	}
}

// declare counts a top-level declaration as public when exported and records its name.
func (v *visitor) declare(name *sitter.Node, exported, identifier bool) {
	if name == nil {
		return
	}
	if exported {
		v.cf.PublicMembers++
	} else {
		v.cf.PrivateMembers++
	}
	if identifier {
		v.cf.Identifiers = append(v.cf.Identifiers, nodeText(name, v.src))
	}
}

func (v *visitor) classBody(body *sitter.Node) {
	for i := range body.ChildCount() {
		m := body.Child(i)
		switch m.Kind() {
		case "method_definition", "public_field_definition", "abstract_method_signature":
		default:
			continue
		}
		name := m.ChildByFieldName("name")
		if name == nil {
			continue
		}
		text := nodeText(name, v.src)
		if text == "constructor" {
			v.constructor(m)
			continue
		}

		if isPrivateMember(m, name, v.src) {
			v.cf.PrivateMembers++
		} else {
			v.cf.PublicMembers++
		}
		if m.Kind() == "method_definition" && creationName.MatchString(text) {
			v.cf.CreationPoints++
		}
	}
}

// constructor detects constructor injection: parameters typed with a named class or
// interface.
func (v *visitor) constructor(m *sitter.Node) {
	params := m.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := range params.ChildCount() {
		param := params.Child(i)
		if param.Kind() != "required_parameter" && param.Kind() != "optional_parameter" {
			continue
		}
		typeName := annotatedType(param.ChildByFieldName("type"), v.src)
		if typeName == "" {
			continue
		}
		v.cf.ConstructorInjection = true
		if v.abstractions[typeName] {
			v.cf.DependsOnInterface = true
		}
	}
}

func (v *visitor) visit(n *sitter.Node) {
	switch n.Kind() {
	case "decorator":
		v.decorator(n)
	case "await_expression", "async":
		v.cf.AsyncConstructs++
	case "new_expression":
		if c := n.ChildByFieldName("constructor"); c != nil && nodeText(c, v.src) == "Promise" {
			v.cf.AsyncConstructs++
		}
	case "type_annotation":
		if v.abstractions[annotatedType(n, v.src)] {
			v.cf.DependsOnInterface = true
		}
	case "call_expression":
		v.call(n)
	}
}

func (v *visitor) decorator(n *sitter.Node) {
	name := strings.TrimPrefix(nodeText(n, v.src), "@")
	if i := strings.IndexAny(name, "(<"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	v.hints.add("@" + name)
	if diDecorators[name] {
		v.cf.FrameworkInjection = true
	}
	if messageDecorators[name] {
		v.cf.MessageConstructs++
	}
	if verb, ok := httpVerbs[name]; ok && name != strings.ToLower(name) {
		v.hints.add("endpoint " + verb)
	}
}

func (v *visitor) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier":
		if nodeText(fn, v.src) == "require" && args != nil {
			v.addImport(findChildByKind(args, "string"))
		}
	case "import":
		if args != nil {
			v.addImport(findChildByKind(args, "string"))
		}
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return
		}
		name := nodeText(prop, v.src)
		if messageCalls[name] {
			v.cf.MessageConstructs++
		}
		if verb, ok := httpVerbs[name]; ok && args != nil && name == strings.ToLower(name) {
			if s := findChildByKind(args, "string"); s != nil {
				if route := unquote(nodeText(s, v.src)); strings.HasPrefix(route, "/") {
					v.hints.add("http_router")
					v.hints.add("endpoint " + verb + " " + route)
				}
			}
		}
	}
}

func (v *visitor) addImport(source *sitter.Node) {
	if source == nil {
		return
	}
	raw := unquote(nodeText(source, v.src))
	if raw == "" {
		return
	}
	resolved, external := resolveImportPath(raw, v.dir, v.aliases)
	if external && diPackages[raw] {
		v.cf.FrameworkInjection = true
	}
	v.cf.Imports = append(v.cf.Imports, resolved)
}

// isPrivateMember reports private, protected and #private class members.
func isPrivateMember(member, name *sitter.Node, src []byte) bool {
	if name.Kind() == "private_property_identifier" {
		return true
	}
	if mod := findChildByKind(member, "accessibility_modifier"); mod != nil {
		text := nodeText(mod, src)
		return text == "private" || text == "protected"
	}
	return false
}

// annotatedType returns the named type of a type annotation: Foo for ": Foo" and
// ": Foo<Bar>", "" for predefined and structural types.
func annotatedType(annotation *sitter.Node, src []byte) string {
	if annotation == nil {
		return ""
	}
	if t := findChildByKind(annotation, "type_identifier"); t != nil {
		return nodeText(t, src)
	}
	if g := findChildByKind(annotation, "generic_type"); g != nil {
		if t := findChildByKind(g, "type_identifier"); t != nil {
			return nodeText(t, src)
		}
	}
	return ""
}

// nextRoute maps a Next.js file to its route. App router files are page, route, layout,
// loading and error; route handlers accept every method.
func nextRoute(relFile string) (method, route string, ok bool) {
	parts := strings.Split(relFile, "/")
	base := strings.TrimSuffix(strings.TrimSuffix(parts[len(parts)-1], ".tsx"), ".ts")

	for i, p := range parts[:len(parts)-1] {
		switch p {
		case "app":
			switch base {
			case "page", "layout", "loading", "error":
				return "GET", "/" + strings.Join(parts[i+1:len(parts)-1], "/"), true
			case "route":
				return "ALL", "/" + strings.Join(parts[i+1:len(parts)-1], "/"), true
			}
			return "", "", false

		case "pages":
			// _app, _document and _error are not routes.
			if strings.HasPrefix(base, "_") {
				return "", "", false
			}
			segments := append([]string{}, parts[i+1:len(parts)-1]...)
			if base != "index" {
				segments = append(segments, base)
			}
			method = "GET"
			if len(segments) > 0 && segments[0] == "api" {
				method = "ALL"
			}
			return method, "/" + strings.Join(segments, "/"), true
		}
	}
	return "", "", false
}

// detectNextJS checks if the repository is a Next.js project.
func detectNextJS(repoPath string) bool {
	for _, name := range []string{"next.config.js", "next.config.mjs", "next.config.ts"} {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err == nil {
			return true
		}
	}
	return hasDependency(repoPath, "next")
}

// hasDependency reports whether package.json lists dep in dependencies or devDependencies.
func hasDependency(repoPath, dep string) bool {
	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if err != nil {
		return false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	_, inDeps := pkg.Dependencies[dep]
	_, inDev := pkg.DevDependencies[dep]
	return inDeps || inDev
}

func isTypeScriptFile(p string) bool {
	if strings.HasSuffix(p, ".d.ts") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".ts" || ext == ".tsx"
}

// walk visits n and all of its descendants depth-first.
func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := range n.ChildCount() {
		walk(n.Child(i), fn)
	}
}

func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	for i := range node.ChildCount() {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
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

// parseTSPathAliases reads tsconfig.json and extracts path alias mappings.
// For example, "@/*": ["./src/*"] maps prefix "@/" to replacement "src/".
func parseTSPathAliases(repoPath string) map[string]string {
	aliases := make(map[string]string)

	data, err := os.ReadFile(filepath.Join(repoPath, "tsconfig.json"))
	if err != nil {
		return aliases
	}

	var config struct {
		CompilerOptions struct {
			Paths map[string][]string `json:"paths"`
		} `json:"compilerOptions"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return aliases
	}

	for pattern, targets := range config.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		if strings.HasSuffix(pattern, "*") && strings.HasSuffix(targets[0], "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			replacement := strings.TrimPrefix(strings.TrimSuffix(targets[0], "*"), "./")
			aliases[prefix] = replacement
		}
	}

	return aliases
}

// resolveImportPath normalizes a TypeScript import path to a repository-relative path.
// It handles path aliases (longest prefix first) and relative imports; everything else is
// an external package.
func resolveImportPath(importPath, fileDir string, aliases map[string]string) (string, bool) {
	prefixes := make([]string, 0, len(aliases))
	for prefix := range aliases {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	sort.SliceStable(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, prefix := range prefixes {
		if strings.HasPrefix(importPath, prefix) {
			rest := strings.TrimPrefix(importPath, prefix)
			return path.Clean(aliases[prefix] + rest), false
		}
	}

	if strings.HasPrefix(importPath, ".") {
		return path.Clean(path.Join(fileDir, importPath)), false
	}

	// react, next/image, @tanstack/react-query, etc.
	return importPath, true
}
