// Package textextractor extracts component facts from languages without a dedicated
// parser, using per-language line regexes.
package textextractor

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dejo1307/archstyle/internal/facts"
)

// TextExtractor handles Java, Kotlin, Python, Ruby, Swift, C#, JavaScript and PHP.
type TextExtractor struct {
	logger *slog.Logger
}

// New creates a new TextExtractor. A nil logger means slog.Default.
func New(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{logger: logger.With("component", "text-extractor")}
}

func (e *TextExtractor) Name() string {
	return "text"
}

// projectMarkers are build files of the supported languages.
var projectMarkers = []string{
	"pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts",
	"requirements.txt", "pyproject.toml", "setup.py", "Pipfile",
	"Gemfile", "Package.swift", "composer.json", "package.json",
	"*.csproj", "*.sln", "*.xcodeproj",
}

// Detect returns true if the repository root carries a build file of a supported language.
func (e *TextExtractor) Detect(repoPath string) (bool, error) {
	for _, marker := range projectMarkers {
		matches, err := filepath.Glob(filepath.Join(repoPath, marker))
		if err != nil {
			return false, err
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	return false, nil
}

var (
	asyncRe   = regexp.MustCompile(`\b(async|await|suspend|launch|CompletableFuture|DispatchQueue|asyncio|Promise|ExecutorService|coroutineScope|Mono|Flux|Thread)\b`)
	messageRe = regexp.MustCompile(`\.(publish|subscribe|produce|consume|emit|send_message|sendMessage|basic_publish|basic_consume|convertAndSend|sendToQueue)\s*\(|` +
		`@(KafkaListener|RabbitListener|JmsListener|SqsListener|EventListener|StreamListener|Subscribe|EventHandler)\b`)
	creationName = regexp.MustCompile(`^(create|make|build|new)[A-Z_]`)
	typeToken    = regexp.MustCompile(`\b[A-Z]\w*\b`)

	routeRe         = regexp.MustCompile(`(?i)[@.](get|post|put|delete|patch)(?:mapping)?\s*\(\s*(?:(?:path|value)\s*=\s*)?["']([^"']*)["']`)
	routeAnyRe      = regexp.MustCompile(`[@.](?:route|RequestMapping)\s*\(\s*(?:(?:path|value)\s*=\s*)?["']([^"']+)["']`)
	aspNetRouteRe   = regexp.MustCompile(`\[Http(Get|Post|Put|Delete|Patch)\s*\(\s*"([^"]*)"`)
	railsVerbRe     = regexp.MustCompile(`^\s*(get|post|put|patch|delete)\s+['"]([^'"]+)['"]`)
	railsResourceRe = regexp.MustCompile(`^\s*resources?\s+:(\w+)`)

	storageHints = []struct {
		re   *regexp.Regexp
		hint string
	}{
		{regexp.MustCompile(`@Entity\b|@Table\b|\bJpaRepository\b|\bCrudRepository\b`), "database:jpa"},
		{regexp.MustCompile(`@(Dao|Database)\b|\bRoomDatabase\b`), "database:room"},
		{regexp.MustCompile(`\bApplicationRecord\b|ActiveRecord::(Base|Migration)`), "database:activerecord"},
		{regexp.MustCompile(`^\s*(has_many|has_one|belongs_to|has_and_belongs_to_many)\s+:\w+`), "database:association"},
		{regexp.MustCompile(`\bmodels\.Model\b`), "database:django"},
		{regexp.MustCompile(`\bdeclarative_base\b|\bsqlalchemy\b|\bdb\.Model\b`), "database:sqlalchemy"},
		{regexp.MustCompile(`\bNSManagedObject\b|\bNSPersistentContainer\b`), "database:coredata"},
		{regexp.MustCompile(`\bDbContext\b|\bDbSet<`), "database:entityframework"},
		{regexp.MustCompile(`\bmongoose\b|\bMongoClient\b|\bpymongo\b`), "database:mongo"},
		{regexp.MustCompile(`\bextends\s+Model\b|\bEloquent\b`), "database:eloquent"},
		{regexp.MustCompile(`(?i)\b(select\s+[\w*,.\s]+\s+from|insert\s+into|create\s+table|delete\s+from)\s+\w`), "sql"},
	}
)

type sourceFile struct {
	rel  string
	lang *language
	src  []byte
}

// Extract scans files of the supported languages and emits one fact per file, in input
// order.
func (e *TextExtractor) Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error) {
	var sources []sourceFile
	for _, relFile := range files {
		rel := filepath.ToSlash(relFile)
		lang := languageFor(rel)
		if lang == nil {
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
		sources = append(sources, sourceFile{rel: rel, lang: lang, src: src})
	}

	idx := buildIndex(sources)
	pw := parsePackwerk(repoPath, files, e.logger)
	result := make([]facts.ComponentFact, 0, len(sources))
	for _, s := range sources {
		cf := scanFile(s, idx)
		if s.lang.name == "ruby" {
			pw.apply(&cf)
		}
		result = append(result, cf)
	}

	e.logger.Debug("extraction complete", "files", len(result))
	return result, nil
}

// declKind is the kind of declaration a line introduces.
type declKind int

const (
	declNone declKind = iota
	declInterface
	declAbstract
	declClass
	declFunction
)

// matchDecl returns the first declaration on line, in kind order.
func (l *language) matchDecl(line string) (declKind, string) {
	groups := []struct {
		kind declKind
		res  []*regexp.Regexp
	}{
		{declInterface, l.interfaces},
		{declAbstract, l.abstracts},
		{declClass, l.classes},
		{declFunction, l.functions},
	}
	for _, g := range groups {
		for _, r := range g.res {
			if m := r.FindStringSubmatch(line); m != nil {
				return g.kind, m[1]
			}
		}
	}
	return declNone, ""
}

// index records, across all scanned files, where each type is declared and which types
// are abstractions.
type index struct {
	declaredIn   map[string]string // type name -> first declaring file
	abstractions map[string]bool
}

func buildIndex(sources []sourceFile) *index {
	idx := &index{declaredIn: make(map[string]string), abstractions: make(map[string]bool)}
	for _, s := range sources {
		forEachLine(s.src, func(line string) {
			if s.lang.isComment(strings.TrimSpace(line)) {
				return
			}
			kind, name := s.lang.matchDecl(line)
			if name == "" || kind == declFunction {
				return
			}
			if _, ok := idx.declaredIn[name]; !ok {
				idx.declaredIn[name] = s.rel
			}
			if kind == declInterface || kind == declAbstract {
				idx.abstractions[name] = true
			}
		})
	}
	return idx
}

func forEachLine(src []byte, fn func(string)) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}

// fileScan accumulates the fact of one file.
type fileScan struct {
	cf       facts.ComponentFact
	lang     *language
	dir      string
	hints    []string
	seen     map[string]bool
	declared map[string]bool
	bases    map[string]bool
	imports  map[string]bool
	private  bool // inside a private section
}

func (s *fileScan) addHint(h string) {
	if s.seen[h] {
		return
	}
	s.seen[h] = true
	s.hints = append(s.hints, h)
}

func (s *fileScan) addImport(imp string) {
	if imp == "" || s.imports[imp] {
		return
	}
	s.imports[imp] = true
	s.cf.Imports = append(s.cf.Imports, imp)
}

func scanFile(src sourceFile, idx *index) facts.ComponentFact {
	s := &fileScan{
		cf:       facts.ComponentFact{Path: src.rel, Language: src.lang.name},
		lang:     src.lang,
		dir:      path.Dir(src.rel),
		seen:     make(map[string]bool),
		declared: make(map[string]bool),
		bases:    make(map[string]bool),
		imports:  make(map[string]bool),
	}
	isRoutesFile := path.Base(src.rel) == "routes.rb"

	var refs []string
	forEachLine(src.src, func(line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || s.lang.isComment(trimmed) {
			return
		}
		s.scanLine(line, idx)
		if isRoutesFile {
			scanRailsRoutes(s, line)
		}
		refs = append(refs, typeToken.FindAllString(line, -1)...)
	})

	for _, ref := range refs {
		if s.declared[ref] {
			continue
		}
		if idx.abstractions[ref] && !s.bases[ref] {
			s.cf.DependsOnInterface = true
		}
		target, ok := idx.declaredIn[ref]
		if !ok || target == src.rel {
			continue
		}
		switch s.lang.typeRefs {
		case typeRefsAny:
			s.addImport(target)
		case typeRefsSameDir:
			if path.Dir(target) == s.dir {
				s.addImport(target)
			}
		}
	}

	s.cf.Hints = s.hints
	return s.cf
}

func (s *fileScan) scanLine(line string, idx *index) {
	l := s.lang

	for _, rule := range l.imports {
		for _, m := range rule.re.FindAllStringSubmatch(line, -1) {
			s.addImport(resolveImport(m[1], s.dir, rule.style))
		}
	}

	if l.sectionOn != nil && l.sectionOn.MatchString(line) {
		s.private = true
	}
	if l.sectionOff != nil && l.sectionOff.MatchString(line) {
		s.private = false
	}

	if l.annotation != nil {
		if m := l.annotation.FindStringSubmatch(line); m != nil {
			s.addHint("@" + m[1])
		}
	}

	switch kind, name := l.matchDecl(line); kind {
	case declInterface:
		s.declare(line, name, true)
		s.cf.DefinesInterface = true
		s.cf.InterfaceCount++
		s.cf.AbstractTypes++
	case declAbstract:
		s.declare(line, name, true)
		s.cf.AbstractTypes++
		s.checkBases(line, name, idx)
	case declClass:
		s.declare(line, name, true)
		s.cf.ConcreteTypes++
		s.checkBases(line, name, idx)
	case declFunction:
		// Only unindented functions are file-level identifiers; methods are members.
		topLevel := len(line) > 0 && line[0] != ' ' && line[0] != '\t'
		if !(l.underscore && isDunder(name)) {
			s.declare(line, name, topLevel)
		}
		if creationName.MatchString(name) {
			s.cf.CreationPoints++
		}
	}

	if l.implements != nil && l.implements.MatchString(line) {
		s.cf.ImplementsInterface = true
	}
	if l.constructor != nil && l.constructor.MatchString(line) {
		s.cf.ConstructorInjection = true
	}
	if l.di != nil && l.di.MatchString(line) {
		s.cf.FrameworkInjection = true
	}
	if l.exports != nil && l.exports.MatchString(line) {
		s.cf.ExplicitExports = true
	}

	if asyncRe.MatchString(line) {
		s.cf.AsyncConstructs++
	}
	s.cf.MessageConstructs += len(messageRe.FindAllStringIndex(line, -1))

	for _, m := range routeRe.FindAllStringSubmatch(line, -1) {
		if strings.HasPrefix(m[2], "/") {
			s.addHint("endpoint " + strings.ToUpper(m[1]) + " " + m[2])
		}
	}
	for _, m := range routeAnyRe.FindAllStringSubmatch(line, -1) {
		s.addHint("endpoint ALL " + m[1])
	}
	for _, m := range aspNetRouteRe.FindAllStringSubmatch(line, -1) {
		s.addHint("endpoint " + strings.ToUpper(m[1]) + " /" + strings.TrimPrefix(m[2], "/"))
	}
	for _, h := range storageHints {
		if h.re.MatchString(line) {
			s.addHint(h.hint)
		}
	}
}

// declare counts a declaration as a public or private member and records its name.
func (s *fileScan) declare(line, name string, identifier bool) {
	s.declared[name] = true
	if identifier {
		s.cf.Identifiers = append(s.cf.Identifiers, name)
	}

	private := s.private && s.lang.sectionOn != nil
	if s.lang.private != nil && s.lang.private.MatchString(line) {
		private = true
	}
	if s.lang.underscore && strings.HasPrefix(name, "_") {
		private = true
	}
	if private {
		s.cf.PrivateMembers++
	} else {
		s.cf.PublicMembers++
	}
}

// checkBases marks the file as implementing an abstraction when a class header names one.
func (s *fileScan) checkBases(line, name string, idx *index) {
	i := strings.Index(line, name)
	if i < 0 {
		return
	}
	for _, tok := range typeToken.FindAllString(line[i+len(name):], -1) {
		if idx.abstractions[tok] && tok != name {
			s.cf.ImplementsInterface = true
			s.bases[tok] = true
		}
	}
}

// scanRailsRoutes reads the routing DSL of config/routes.rb.
func scanRailsRoutes(s *fileScan, line string) {
	if m := railsVerbRe.FindStringSubmatch(line); m != nil {
		s.addHint("endpoint " + strings.ToUpper(m[1]) + " " + "/" + strings.TrimPrefix(m[2], "/"))
	}
	if m := railsResourceRe.FindStringSubmatch(line); m != nil {
		s.addHint("endpoint REST /" + m[1])
	}
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}
