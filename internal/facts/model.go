package facts

// ComponentFact is the per-file record produced by an extractor. It is the only input
// the analysis core reads. Absent keys decode to their zero value and are treated as
// "not detected".
type ComponentFact struct {
	Path        string   `json:"path"`
	Language    string   `json:"language,omitempty"`
	Imports     []string `json:"imports,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"` // declared type/function names
	Hints       []string `json:"hints,omitempty"`       // annotations, decorators, notable calls

	DefinesInterface    bool `json:"defines_interface,omitempty"`
	ImplementsInterface bool `json:"implements_interface,omitempty"`
	DependsOnInterface  bool `json:"depends_on_interface,omitempty"`
	InterfaceCount      int  `json:"interface_count,omitempty"`
	AbstractTypes       int  `json:"abstract_types,omitempty"`
	ConcreteTypes       int  `json:"concrete_types,omitempty"`

	PublicMembers   int  `json:"public_members,omitempty"`
	PrivateMembers  int  `json:"private_members,omitempty"`
	ExplicitExports bool `json:"explicit_exports,omitempty"`

	ConstructorInjection bool `json:"constructor_injection,omitempty"`
	FrameworkInjection   bool `json:"framework_injection,omitempty"`
	CreationPoints       int  `json:"creation_points,omitempty"`

	AsyncConstructs   int `json:"async_constructs,omitempty"`
	MessageConstructs int `json:"message_constructs,omitempty"`

	// Precomputed scores some extractors supply directly. Zero means absent.
	EncapsulationRatio float64 `json:"encapsulation_ratio,omitempty"`
	DIPScore           float64 `json:"dip_score,omitempty"`
	InfoHidingScore    float64 `json:"info_hiding_score,omitempty"`
}

// Keywords returns identifiers followed by hints, the text classifiers match after
// path segments.
func (f *ComponentFact) Keywords() []string {
	out := make([]string, 0, len(f.Identifiers)+len(f.Hints))
	out = append(out, f.Identifiers...)
	out = append(out, f.Hints...)
	return out
}

// Result is the outcome of one detector run.
type Result struct {
	Name            string             `json:"name"`
	Confidence      float64            `json:"confidence"` // 0.0 - 1.0
	Metrics         map[string]float64 `json:"metrics"`
	Pattern         string             `json:"pattern,omitempty"`
	Description     string             `json:"description"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// IntentReport holds the three intent results and their weighted overall score.
type IntentReport struct {
	Overall float64           `json:"overall"`
	Results map[string]Result `json:"results"`
	Summary string            `json:"summary"`
}

// StyleReport holds the five style results and the selected primary style.
type StyleReport struct {
	Primary string            `json:"primary"`
	ByName  map[string]Result `json:"by_name"`
	Summary string            `json:"summary"`
}

// AggregateReport is the complete output of one analysis run.
type AggregateReport struct {
	Intents IntentReport `json:"intents"`
	Styles  StyleReport  `json:"styles"`
	Summary string       `json:"summary"`
}

// Artifact represents a generated output file.
type Artifact struct {
	Name    string `json:"name"` // e.g. "report.md"
	Content []byte `json:"-"`    // Raw content
	Type    string `json:"type"` // MIME type hint
}

// Snapshot holds the complete result of an analysis run over a repository.
type Snapshot struct {
	Meta      SnapshotMeta     `json:"meta"`
	Facts     []ComponentFact  `json:"facts"`
	Report    *AggregateReport `json:"report"`
	Artifacts []Artifact       `json:"artifacts"`
}

// SnapshotMeta contains metadata about a snapshot generation run.
type SnapshotMeta struct {
	RepoPath     string   `json:"repo_path"`
	GeneratedAt  string   `json:"generated_at"`
	Duration     string   `json:"duration"`
	Extractors   []string `json:"extractors"`
	Renderers    []string `json:"renderers"`
	FactCount    int      `json:"fact_count"`
	PrimaryStyle string   `json:"primary_style"`
}
