package facts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// ErrNotAList is returned when fact input is neither a JSON array nor a JSONL stream.
var ErrNotAList = errors.New("fact input is not a list")

// Corpus is the ordered set of component facts for one analysis run, with JSONL persistence.
// Order is preserved so that repeated runs over the same input produce identical reports.
type Corpus struct {
	mu    sync.RWMutex
	facts []ComponentFact

	byPath     map[string]int   // path -> index into facts
	byLanguage map[string][]int // language -> indices into facts
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		byPath:     make(map[string]int),
		byLanguage: make(map[string][]int),
	}
}

// Add appends facts to the corpus. A fact whose path is already present replaces
// the earlier record in place, keeping its position.
func (c *Corpus) Add(ff ...ComponentFact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range ff {
		if idx, ok := c.byPath[f.Path]; ok && f.Path != "" {
			old := c.facts[idx]
			c.facts[idx] = f
			if old.Language != f.Language {
				c.removeFromIndex(old.Language, idx)
				c.byLanguage[f.Language] = append(c.byLanguage[f.Language], idx)
			}
			continue
		}
		idx := len(c.facts)
		c.facts = append(c.facts, f)
		if f.Path != "" {
			c.byPath[f.Path] = idx
		}
		c.byLanguage[f.Language] = append(c.byLanguage[f.Language], idx)
	}
}

// All returns a copy of all facts in insertion order.
func (c *Corpus) All() []ComponentFact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]ComponentFact, len(c.facts))
	copy(result, c.facts)
	return result
}

// Count returns the number of facts in the corpus.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.facts)
}

// ByPath returns the fact for the given path.
func (c *Corpus) ByPath(path string) (ComponentFact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byPath[path]
	if !ok {
		return ComponentFact{}, false
	}
	return c.facts[idx], true
}

// ByLanguage returns all facts for the given language.
func (c *Corpus) ByLanguage(lang string) []ComponentFact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	indices := c.byLanguage[lang]
	result := make([]ComponentFact, 0, len(indices))
	for _, idx := range indices {
		result = append(result, c.facts[idx])
	}
	return result
}

// Languages returns the distinct languages in the corpus, sorted.
func (c *Corpus) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.byLanguage))
	for l, indices := range c.byLanguage {
		if len(indices) > 0 {
			langs = append(langs, l)
		}
	}
	sort.Strings(langs)
	return langs
}

// Clear removes all facts from the corpus.
func (c *Corpus) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts = nil
	c.byPath = make(map[string]int)
	c.byLanguage = make(map[string][]int)
}

// WriteJSONL writes all facts as JSONL to the given writer.
func (c *Corpus) WriteJSONL(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	enc := json.NewEncoder(w)
	for _, f := range c.facts {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding fact %q: %w", f.Path, err)
		}
	}
	return nil
}

// WriteJSONLFile writes all facts as JSONL to the given file path.
func (c *Corpus) WriteJSONLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := c.WriteJSONL(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadJSONLFile reads facts from a JSON array or JSONL file and adds them to the corpus.
func (c *Corpus) ReadJSONLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	ff, err := DecodeFacts(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	c.Add(ff...)
	return nil
}

// DecodeFacts reads component facts from either a JSON array or a JSONL stream.
// Any other top-level JSON value yields ErrNotAList. Empty input is an empty list.
func DecodeFacts(r io.Reader) ([]ComponentFact, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch first {
	case '[':
		var ff []ComponentFact
		if err := json.NewDecoder(br).Decode(&ff); err != nil {
			return nil, fmt.Errorf("decoding fact array: %w", err)
		}
		return ff, nil
	case '{':
		return decodeJSONL(br)
	default:
		return nil, fmt.Errorf("%w: input starts with %q", ErrNotAList, first)
	}
}

// DecodeCorpus reads facts like DecodeFacts and wraps them in a Corpus.
func DecodeCorpus(r io.Reader) (*Corpus, error) {
	ff, err := DecodeFacts(r)
	if err != nil {
		return nil, err
	}
	c := NewCorpus()
	c.Add(ff...)
	return c, nil
}

func decodeJSONL(br *bufio.Reader) ([]ComponentFact, error) {
	var result []ComponentFact
	scanner := bufio.NewScanner(br)
	// Allow large lines
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if raw[0] != '{' {
			return nil, fmt.Errorf("%w: line %d is not an object", ErrNotAList, line)
		}
		var f ComponentFact
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decoding fact on line %d: %w", line, err)
		}
		result = append(result, f)
	}
	return result, scanner.Err()
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func (c *Corpus) removeFromIndex(lang string, idx int) {
	indices := c.byLanguage[lang]
	for i, v := range indices {
		if v == idx {
			c.byLanguage[lang] = append(indices[:i], indices[i+1:]...)
			return
		}
	}
}
