package classify

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the classification table of every detector plus the external broker
// vocabulary. It is built once by the caller and passed to each detector.
type Registry struct {
	tables  map[string]*Table
	brokers []string
}

// NewRegistry creates a registry populated with the built-in tables.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[string]*Table)}
	r.Register(MustTable(TableConcernLayers, concernLayerRules()...))
	r.Register(MustTable(TableConcernDomains, concernDomainRules()...))
	r.Register(MustTable(TableInfoHiding, infoHidingRules()...))
	r.Register(MustTable(TableDependencyInv, dependencyInversionRules()...))
	r.Register(MustTable(TableLayered, layeredRules()...))
	r.Register(MustTable(TableHexagonal, hexagonalRules()...))
	r.Register(MustTable(TableClean, cleanRules()...))
	r.Register(MustTable(TableMicroservices, microserviceRules()...))
	r.Register(MustTable(TableEventDriven, eventDrivenRules()...))
	r.brokers = append(r.brokers, DefaultBrokers...)
	return r
}

// Register adds or replaces a table.
func (r *Registry) Register(t *Table) {
	r.tables[t.Name()] = t
}

// Table returns the named table. Unknown names return an empty table, so a detector
// never has to nil-check and simply classifies everything as Unknown.
func (r *Registry) Table(name string) *Table {
	if t, ok := r.tables[name]; ok {
		return t
	}
	return &Table{name: name, index: make(map[string]*compiledRule)}
}

// Names returns the registered table names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extend appends patterns to a label of a registered table.
func (r *Registry) Extend(table, label string, patterns ...string) error {
	t, ok := r.tables[table]
	if !ok {
		return fmt.Errorf("unknown classifier table %q", table)
	}
	return t.Extend(label, patterns...)
}

// AddBrokers extends the external broker vocabulary. Duplicates are ignored.
func (r *Registry) AddBrokers(names ...string) {
	seen := make(map[string]bool, len(r.brokers))
	for _, b := range r.brokers {
		seen[b] = true
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		r.brokers = append(r.brokers, n)
	}
}

// Brokers returns the broker vocabulary in insertion order.
func (r *Registry) Brokers() []string {
	out := make([]string, len(r.brokers))
	copy(out, r.brokers)
	return out
}
