package generator

// Mode selects what the generator is asked to produce.
type Mode string

const (
	// ModeTemplate asks for a flat JSON object of marker -> text.
	ModeTemplate Mode = "template"
	// ModeEssay asks for free Markdown text with **bold** emphasis.
	ModeEssay Mode = "essay"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTemplate || m == ModeEssay
}

// Request describes one generation.
type Request struct {
	Subject         string
	CaseDescription string
	// Keys lists the marker names the template needs, e.g. "RESUMO".
	Keys []string
}

// Delimiters wrap a marker name in the template, e.g. "{{" and "}}".
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters is the doubled-brace marker convention.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// Wrap returns the marker for name.
func (d Delimiters) Wrap(name string) string {
	return d.Open + name + d.Close
}

// Pair is one marker and its replacement text.
type Pair struct {
	Key   string
	Value string
}

// Span is a run of text with uniform emphasis.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// Paragraph is one block of rich text. Level > 0 marks a heading.
type Paragraph struct {
	Spans []Span
	Level int
}

// RichText is free-text output split into paragraphs.
type RichText []Paragraph
