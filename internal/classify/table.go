// Package classify maps components to detector-specific categories using ordered
// (label, patterns) tables. The first matching rule in table order wins.
package classify

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Unknown is returned when no rule matches.
const Unknown = "unknown"

// Rule maps a label to the patterns that indicate it. Unless lists labels whose own
// rules veto this one when they match the same input.
type Rule struct {
	Label    string
	Patterns []string
	Unless   []string
}

type compiledRule struct {
	label    string
	patterns []*regexp.Regexp
	unless   []string
}

// Table is an ordered rule list owned by one detector.
type Table struct {
	name  string
	rules []*compiledRule
	index map[string]*compiledRule
}

// NewTable compiles rules into a table. Patterns are case-insensitive regular expressions.
func NewTable(name string, rules ...Rule) (*Table, error) {
	t := &Table{name: name, index: make(map[string]*compiledRule)}
	for _, r := range rules {
		if err := t.add(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is NewTable that panics on an invalid pattern. It is meant for built-in tables.
func MustTable(name string, rules ...Rule) *Table {
	t, err := NewTable(name, rules...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) add(r Rule) error {
	if r.Label == "" {
		return fmt.Errorf("table %s: rule with empty label", t.name)
	}
	if _, dup := t.index[r.Label]; dup {
		return fmt.Errorf("table %s: duplicate label %q", t.name, r.Label)
	}
	cr := &compiledRule{label: r.Label, unless: r.Unless}
	for _, p := range r.Patterns {
		re, err := compilePattern(p)
		if err != nil {
			return fmt.Errorf("table %s, label %s: %w", t.name, r.Label, err)
		}
		cr.patterns = append(cr.patterns, re)
	}
	t.rules = append(t.rules, cr)
	t.index[r.Label] = cr
	return nil
}

// Extend appends patterns to label's rule. A label the table does not know yet is added
// as a new rule with the lowest precedence.
func (t *Table) Extend(label string, patterns ...string) error {
	cr, ok := t.index[label]
	if !ok {
		return t.add(Rule{Label: label, Patterns: patterns})
	}
	for _, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return fmt.Errorf("table %s, label %s: %w", t.name, label, err)
		}
		cr.patterns = append(cr.patterns, re)
	}
	return nil
}

// Name returns the table identifier.
func (t *Table) Name() string {
	return t.name
}

// Labels returns the labels in precedence order.
func (t *Table) Labels() []string {
	labels := make([]string, len(t.rules))
	for i, r := range t.rules {
		labels[i] = r.label
	}
	return labels
}

// Classify returns the first label whose patterns match a path segment. If none does, the
// keywords (identifiers and hints) are tried in the same order. Unknown when nothing matches.
// Vetoes see both the segments and the keywords, whichever pass matched.
func (t *Table) Classify(filePath string, keywords []string) string {
	segments := Segments(filePath)
	all := make([]string, 0, len(segments)+len(keywords))
	all = append(append(all, segments...), keywords...)

	if label, ok := t.firstMatch(segments, all); ok {
		return label
	}
	if label, ok := t.firstMatch(keywords, all); ok {
		return label
	}
	return Unknown
}

// Matches reports whether label's own patterns match the path segments or the keywords,
// ignoring precedence. Detectors use it for independent flags.
func (t *Table) Matches(label, filePath string, keywords []string) bool {
	cr, ok := t.index[label]
	if !ok {
		return false
	}
	return cr.matchAny(Segments(filePath)) || cr.matchAny(keywords)
}

func (t *Table) firstMatch(inputs, vetoInputs []string) (string, bool) {
	if len(inputs) == 0 {
		return "", false
	}
	for _, r := range t.rules {
		if !r.matchAny(inputs) {
			continue
		}
		if t.vetoed(r, vetoInputs) {
			continue
		}
		return r.label, true
	}
	return "", false
}

func (t *Table) vetoed(r *compiledRule, inputs []string) bool {
	for _, other := range r.unless {
		if o, ok := t.index[other]; ok && o.matchAny(inputs) {
			return true
		}
	}
	return false
}

func (r *compiledRule) matchAny(inputs []string) bool {
	for _, in := range inputs {
		for _, re := range r.patterns {
			if re.MatchString(in) {
				return true
			}
		}
	}
	return false
}

// Segments splits a file path into lowercase directory names and the file stem. A dotted
// stem such as "user.controller" also contributes its parts.
func Segments(filePath string) []string {
	p := strings.ToLower(strings.ReplaceAll(filePath, "\\", "/"))
	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts)+2)
	for i, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if i == len(parts)-1 {
			stem := strings.TrimSuffix(part, path.Ext(part))
			if stem == "" {
				stem = part
			}
			segments = append(segments, stem)
			if strings.Contains(stem, ".") {
				for _, sub := range strings.Split(stem, ".") {
					if sub != "" {
						segments = append(segments, sub)
					}
				}
			}
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
	}
	return re, nil
}
