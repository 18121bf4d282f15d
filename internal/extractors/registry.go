package extractors

import (
	"context"

	"github.com/dejo1307/archstyle/internal/facts"
)

// Extractor parses source files for a specific language and emits one ComponentFact per
// file it understands.
type Extractor interface {
	// Name returns the extractor identifier (e.g. "go", "typescript").
	Name() string
	// Detect returns true if this extractor supports the given repository.
	Detect(repoPath string) (bool, error)
	// Extract parses files (relative to repoPath) and returns their facts in input order.
	// Files the extractor does not handle are ignored.
	Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error)
}

// Registry holds extractors in registration order. Names are unique.
type Registry struct {
	extractors []Extractor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds e, replacing an earlier extractor with the same name in place.
func (r *Registry) Register(e Extractor) {
	for i, existing := range r.extractors {
		if existing.Name() == e.Name() {
			r.extractors[i] = e
			return
		}
	}
	r.extractors = append(r.extractors, e)
}

// Enabled returns the extractors whose name passes enabled, in registration order.
func (r *Registry) Enabled(enabled func(name string) bool) []Extractor {
	var out []Extractor
	for _, e := range r.extractors {
		if enabled(e.Name()) {
			out = append(out, e)
		}
	}
	return out
}
