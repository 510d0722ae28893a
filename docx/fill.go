package docx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Markers maps marker strings to replacement text, remembering the
// order keys were first set.
type Markers struct {
	keys   []string
	values map[string]string
}

// NewMarkers returns an empty mapping.
func NewMarkers() *Markers {
	return &Markers{values: make(map[string]string)}
}

// Set adds or overwrites a marker. Overwriting keeps the first position.
func (m *Markers) Set(key, value string) error {
	if key == "" {
		return errors.New("marker key must not be empty")
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return nil
}

// Get returns the replacement for key.
func (m *Markers) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Markers) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of markers.
func (m *Markers) Len() int { return len(m.keys) }

// matchOrder returns keys longest first, ties in insertion order.
func (m *Markers) matchOrder() []string {
	keys := m.Keys()
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}

// Stats summarises one substitution pass.
type Stats struct {
	Replacements map[string]int
	Paragraphs   int
	Unfilled     []string
}

// Total returns the number of replaced occurrences.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Replacements {
		n += c
	}
	return n
}

func (s *Stats) merge(o Stats) {
	if s.Replacements == nil {
		s.Replacements = make(map[string]int)
	}
	for k, v := range o.Replacements {
		s.Replacements[k] += v
	}
	s.Paragraphs += o.Paragraphs
}

// Fill replaces every marker occurrence in every paragraph of doc, body
// and table cells alike.
func Fill(doc *Document, markers *Markers) Stats {
	stats := Stats{Replacements: make(map[string]int)}
	if markers == nil || markers.Len() == 0 {
		return stats
	}
	order := markers.matchOrder()
	for _, p := range doc.Paragraphs() {
		if p.replace(markers, order, stats.Replacements) {
			stats.Paragraphs++
		}
	}
	return stats
}

type match struct {
	start, end int
	value      string
}

func (p *Paragraph) replace(markers *Markers, order []string, counts map[string]int) bool {
	text := p.Text()
	if text == "" {
		return false
	}

	var matches []match
	for i := 0; i < len(text); {
		key := keyAt(text, i, order)
		if key == "" {
			i++
			continue
		}
		value, _ := markers.Get(key)
		matches = append(matches, match{start: i, end: i + len(key), value: value})
		counts[key]++
		i += len(key)
	}
	if len(matches) == 0 {
		return false
	}

	p.rewrite(text, matches)
	return true
}

func keyAt(text string, i int, order []string) string {
	for _, k := range order {
		if strings.HasPrefix(text[i:], k) {
			return k
		}
	}
	return ""
}

// rewrite distributes the new text over the paragraph's nodes. Plain
// characters stay in the node that held them; a replacement lands in the
// node where its marker started.
func (p *Paragraph) rewrite(text string, matches []match) {
	bounds := make([]int, len(p.nodes)+1)
	for i, n := range p.nodes {
		bounds[i+1] = bounds[i] + len(n.text)
	}
	nodeAt := func(pos int) int {
		return sort.Search(len(p.nodes), func(i int) bool { return bounds[i+1] > pos })
	}

	out := make([]strings.Builder, len(p.nodes))
	emit := func(from, to int) {
		for from < to {
			i := nodeAt(from)
			end := min(to, bounds[i+1])
			out[i].WriteString(text[from:end])
			from = end
		}
	}

	pos := 0
	for _, m := range matches {
		emit(pos, m.start)
		out[nodeAt(m.start)].WriteString(m.value)
		pos = m.end
	}
	emit(pos, len(text))

	for i, n := range p.nodes {
		if s := out[i].String(); s != n.text {
			n.text = s
			n.dirty = true
		}
	}
}

// FindMarkers lists the distinct open...close markers in the document in
// order of first appearance.
func (d *Document) FindMarkers(open, close string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range d.Paragraphs() {
		for _, m := range scanMarkers(p.Text(), open, close) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func scanMarkers(text, open, close string) []string {
	var out []string
	for {
		i := strings.Index(text, open)
		if i < 0 {
			return out
		}
		rest := text[i+len(open):]
		j := strings.Index(rest, close)
		if j < 0 {
			return out
		}
		name := rest[:j]
		if k := strings.LastIndex(name, open); k >= 0 {
			// "{{ {{NAME}}": the innermost opener wins
			name = name[k+len(open):]
		}
		if strings.TrimSpace(name) != "" {
			out = append(out, open+name+close)
		}
		text = rest[j+len(close):]
	}
}

// FillOptions controls FillPackage.
type FillOptions struct {
	// IncludeHeaders also rewrites header and footer parts.
	IncludeHeaders bool
	// Open and Close delimit markers when reporting unfilled ones.
	Open, Close string
}

// FillPackage substitutes markers in the package's text parts and
// returns the serialised result. Nothing is returned unless every part
// was parsed, rewritten and written successfully.
func FillPackage(pkg *Package, markers *Markers, opts FillOptions) ([]byte, Stats, error) {
	total := Stats{Replacements: make(map[string]int)}
	replaced := make(map[string][]byte)

	var remaining []string
	seen := make(map[string]bool)
	for _, name := range pkg.TextParts(opts.IncludeHeaders) {
		doc, err := pkg.Document(name)
		if err != nil {
			return nil, Stats{}, err
		}
		st := Fill(doc, markers)
		total.merge(st)
		if st.Paragraphs > 0 {
			replaced[name] = doc.Bytes()
			// The rewritten part must still parse.
			check, err := ParseDocument(name, replaced[name])
			if err != nil {
				return nil, Stats{}, fmt.Errorf("rewritten part is invalid: %w", err)
			}
			doc = check
		}
		if opts.Open != "" && opts.Close != "" {
			for _, m := range doc.FindMarkers(opts.Open, opts.Close) {
				if !seen[m] {
					seen[m] = true
					remaining = append(remaining, m)
				}
			}
		}
	}

	for name, data := range replaced {
		if err := pkg.SetPart(name, data); err != nil {
			return nil, Stats{}, err
		}
	}
	out, err := pkg.Bytes()
	if err != nil {
		return nil, Stats{}, err
	}
	total.Unfilled = remaining
	return out, total, nil
}
