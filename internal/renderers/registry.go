package renderers

import (
	"context"

	"github.com/dejo1307/archstyle/internal/facts"
)

// Renderer produces output artifacts from a snapshot.
type Renderer interface {
	// Name returns the renderer identifier (e.g. "markdown").
	Name() string
	// Render produces artifacts from the given snapshot. The snapshot always carries a report.
	Render(ctx context.Context, snapshot *facts.Snapshot) ([]facts.Artifact, error)
}

// Registry holds renderers in registration order. Names are unique.
type Registry struct {
	renderers []Renderer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds rnd, replacing an earlier renderer with the same name in place.
func (r *Registry) Register(rnd Renderer) {
	for i, existing := range r.renderers {
		if existing.Name() == rnd.Name() {
			r.renderers[i] = rnd
			return
		}
	}
	r.renderers = append(r.renderers, rnd)
}

// Enabled returns the renderers whose name passes enabled, in registration order.
func (r *Registry) Enabled(enabled func(name string) bool) []Renderer {
	var out []Renderer
	for _, rnd := range r.renderers {
		if enabled(rnd.Name()) {
			out = append(out, rnd)
		}
	}
	return out
}
