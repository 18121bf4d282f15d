package graph

import (
	"log/slog"
	"path"
	"strings"
	"unicode"
)

// ExternalScheme prefixes synthetic references to infrastructure outside the codebase.
const ExternalScheme = "external://"

// overlapThreshold is the minimum len(import)/len(nodeID) score for a substring match.
const overlapThreshold = 0.5

// defaultExtensions are probed, in order, when resolving an import relative to its source file.
var defaultExtensions = []string{
	"", ".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".java", ".kt", ".rb", ".swift", ".cs", ".php",
	"/index.ts", "/index.js", "/__init__.py",
}

// knownExtensions marks import strings that already name a file.
var knownExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true,
	".py": true, ".java": true, ".kt": true, ".rb": true, ".swift": true, ".cs": true, ".php": true,
}

// Ref is the outcome of a successful resolution.
type Ref struct {
	ID       string
	External bool
}

// Resolver maps raw import strings onto nodes of a component graph.
type Resolver struct {
	extensions []string
	keywords   []string
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExternalKeywords enables external:// references for imports with a word naming one
// of the keywords, e.g. message broker product names.
func WithExternalKeywords(keywords ...string) Option {
	return func(r *Resolver) {
		for _, kw := range keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				r.keywords = append(r.keywords, kw)
			}
		}
	}
}

// WithLogger sets the logger used for dropped imports.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver with the default extension probe list.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		extensions: defaultExtensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps rawImport, found in sourcePath, to a node of g. The steps run in order:
// substring overlap against known ids, a relative path probe, then the external keyword
// vocabulary. ok is false when the import cannot be resolved.
func (r *Resolver) Resolve(g *Graph, sourcePath, rawImport string) (Ref, bool) {
	raw := strings.TrimSpace(rawImport)
	if raw == "" {
		return Ref{}, false
	}

	if id, ok := r.bestOverlap(g, sourcePath, raw); ok {
		return Ref{ID: id}, true
	}

	if id, ok := r.probeRelative(g, sourcePath, raw); ok {
		return Ref{ID: id}, true
	}

	words := importWords(raw)
	for _, kw := range r.keywords {
		for _, w := range words {
			if matchesKeyword(w, kw) {
				return Ref{ID: ExternalScheme + kw, External: true}, true
			}
		}
	}

	return Ref{}, false
}

// libraryAffixes are name parts that client libraries add around a product name, as in
// kafkajs, amqplib or ioredis.
var libraryAffixes = map[string]bool{"go": true, "js": true, "io": true, "lib": true, "py": true, "rb": true, "net": true}

// importWords splits an import into its lowercase alphanumeric words.
func importWords(raw string) []string {
	return strings.FieldsFunc(strings.ToLower(raw), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}

// matchesKeyword reports whether word names kw: the word itself, or kw with a version
// number or a library affix attached.
func matchesKeyword(word, kw string) bool {
	if word == kw {
		return true
	}
	var rest string
	switch {
	case strings.HasPrefix(word, kw):
		rest = word[len(kw):]
	case strings.HasSuffix(word, kw):
		rest = word[:len(word)-len(kw)]
	default:
		return false
	}
	if libraryAffixes[rest] {
		return true
	}
	return strings.TrimLeft(rest, "0123456789") == ""
}

// Link resolves every import of sourcePath and adds the resulting edges to g. External
// references get a placeholder node first. It returns the number of edges added.
func (r *Resolver) Link(g *Graph, sourcePath string, imports []string) int {
	added := 0
	for _, imp := range imports {
		ref, ok := r.Resolve(g, sourcePath, imp)
		if !ok {
			r.logger.Debug("dropping unresolved import", "source", sourcePath, "import", imp)
			continue
		}
		if ref.External {
			g.AddPlaceholder(ref.ID)
		}
		if g.AddEdge(sourcePath, ref.ID) {
			added++
		}
	}
	return added
}

// bestOverlap scores every known node id containing the import (raw or normalized) by
// len(import)/len(id) and returns the best score above the threshold. Earlier nodes win ties.
func (r *Resolver) bestOverlap(g *Graph, sourcePath, raw string) (string, bool) {
	candidates := []string{raw}
	if norm := normalizeImport(raw); norm != "" && norm != raw {
		candidates = append(candidates, norm)
	}

	bestID := ""
	bestScore := 0.0
	for _, id := range g.order {
		if id == sourcePath || g.nodes[id].External {
			continue
		}
		for _, c := range candidates {
			if !strings.Contains(id, c) {
				continue
			}
			score := float64(len(c)) / float64(len(id))
			if score > bestScore {
				bestScore = score
				bestID = id
			}
		}
	}
	if bestScore > overlapThreshold {
		return bestID, true
	}
	return "", false
}

// probeRelative joins the import onto the source file's directory and tries each extension.
func (r *Resolver) probeRelative(g *Graph, sourcePath, raw string) (string, bool) {
	trimmed := strings.Trim(raw, "\"'`")
	base := path.Join(path.Dir(sourcePath), trimmed)
	for _, ext := range r.extensions {
		candidate := base + ext
		if candidate == sourcePath {
			continue
		}
		if n, ok := g.nodes[candidate]; ok && !n.External {
			return candidate, true
		}
	}
	return "", false
}

// normalizeImport turns language-specific import spellings into path-like strings:
// quotes and leading ./ or ../ are dropped, and dotted module paths become slash paths.
func normalizeImport(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'`")
	for {
		switch {
		case strings.HasPrefix(s, "./"):
			s = s[2:]
			continue
		case strings.HasPrefix(s, "../"):
			s = s[3:]
			continue
		}
		break
	}

	if !strings.Contains(s, "/") && strings.Contains(s, ".") && !knownExtensions[path.Ext(s)] {
		s = strings.ReplaceAll(s, ".", "/")
		s = strings.TrimSuffix(s, "/*")
		s = strings.TrimLeft(s, "/")
	}
	return s
}
