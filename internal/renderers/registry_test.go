package renderers

import (
	"context"
	"testing"

	"github.com/dejo1307/archstyle/internal/facts"
)

type named string

func (n named) Name() string { return string(n) }
func (n named) Render(context.Context, *facts.Snapshot) ([]facts.Artifact, error) {
	return nil, nil
}

func TestRegistry_Enabled(t *testing.T) {
	r := NewRegistry()
	r.Register(named("markdown"))
	r.Register(named("json"))
	r.Register(named("markdown"))

	if got := r.Enabled(func(string) bool { return true }); len(got) != 2 {
		t.Errorf("got %d renderers, want 2 (names are unique)", len(got))
	}
	got := r.Enabled(func(name string) bool { return name == "json" })
	if len(got) != 1 || got[0].Name() != "json" {
		t.Errorf("Enabled = %v", got)
	}
}
