package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Block is a body-level element: *Paragraph or *Table.
type Block interface {
	isBlock()
}

// Paragraph is a w:p element. Its text is the concatenation of the w:t
// nodes of its runs.
type Paragraph struct {
	nodes []*textNode
}

// Table is a w:tbl element.
type Table struct {
	Rows []*Row
}

// Row is a w:tr element.
type Row struct {
	Cells []*Cell
}

// Cell is a w:tc element holding paragraphs and nested tables.
type Cell struct {
	Blocks []Block
}

func (*Paragraph) isBlock() {}
func (*Table) isBlock()     {}

// Text returns the paragraph's plain text.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, n := range p.nodes {
		sb.WriteString(n.text)
	}
	return sb.String()
}

// Paragraphs returns the paragraphs of every cell of the table.
func (t *Table) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			out = appendParagraphs(out, cell.Blocks)
		}
	}
	return out
}

// textNode is one w:t element, located by its byte span in the part.
type textNode struct {
	start, end int
	qname      string // qualified element name as written, e.g. "w:t"
	text       string
	dirty      bool
}

func (n *textNode) prefix() string {
	if i := strings.IndexByte(n.qname, ':'); i >= 0 {
		return n.qname[:i+1]
	}
	return ""
}

// Document is a parsed text part. Rewrites are spliced into the original
// bytes, so everything outside the rewritten w:t nodes is kept verbatim.
type Document struct {
	Part   string
	Blocks []Block

	raw   []byte
	nodes []*textNode
}

// Paragraphs returns every paragraph in document order, body paragraphs
// and table-cell paragraphs alike.
func (d *Document) Paragraphs() []*Paragraph {
	return appendParagraphs(nil, d.Blocks)
}

func appendParagraphs(out []*Paragraph, blocks []Block) []*Paragraph {
	for _, b := range blocks {
		switch el := b.(type) {
		case *Paragraph:
			out = append(out, el)
		case *Table:
			out = append(out, el.Paragraphs()...)
		}
	}
	return out
}

// frame tracks one open element while parsing.
type frame struct {
	para  *Paragraph
	table *Table
	row   *Row
	cell  *Cell
	text  *textNode
}

// ParseDocument indexes the paragraphs, tables and text nodes of a
// WordprocessingML part.
func ParseDocument(part string, data []byte) (*Document, error) {
	doc := &Document{Part: part, raw: data}
	dec := xml.NewDecoder(bytes.NewReader(data))

	var stack []frame

	// container returns the block list new paragraphs and tables join.
	container := func() *[]Block {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].cell != nil {
				return &stack[i].cell.Blocks
			}
		}
		return &doc.Blocks
	}
	nearest := func(match func(frame) bool) *frame {
		for i := len(stack) - 1; i >= 0; i-- {
			if match(stack[i]) {
				return &stack[i]
			}
		}
		return nil
	}

	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, structureErr("parse", part, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var f frame
			if t.Name.Space == wordNS {
				switch t.Name.Local {
				case "p":
					f.para = &Paragraph{}
					blocks := container()
					*blocks = append(*blocks, f.para)
				case "tbl":
					f.table = &Table{}
					blocks := container()
					*blocks = append(*blocks, f.table)
				case "tr":
					tf := nearest(func(fr frame) bool { return fr.table != nil })
					if tf == nil {
						return nil, structureErr("parse", part, fmt.Errorf("table row outside table at offset %d", offset))
					}
					f.row = &Row{}
					tf.table.Rows = append(tf.table.Rows, f.row)
				case "tc":
					rf := nearest(func(fr frame) bool { return fr.row != nil })
					if rf == nil {
						return nil, structureErr("parse", part, fmt.Errorf("table cell outside row at offset %d", offset))
					}
					f.cell = &Cell{}
					rf.row.Cells = append(rf.row.Cells, f.cell)
				case "t":
					if pf := nearest(func(fr frame) bool { return fr.para != nil }); pf != nil {
						f.text = &textNode{start: offset, qname: rawName(data, offset)}
						pf.para.nodes = append(pf.para.nodes, f.text)
						doc.nodes = append(doc.nodes, f.text)
					}
				}
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 && stack[len(stack)-1].text != nil {
				stack[len(stack)-1].text.text += string(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, structureErr("parse", part, fmt.Errorf("unbalanced end element %s", t.Name.Local))
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.text != nil {
				top.text.end = int(dec.InputOffset())
			}
		}
	}

	if len(stack) != 0 {
		return nil, structureErr("parse", part, fmt.Errorf("unexpected end of document"))
	}
	return doc, nil
}

// rawName reads the qualified element name of the start tag at offset.
func rawName(data []byte, offset int) string {
	i := offset
	for i < len(data) && data[i] != '<' {
		i++
	}
	i++
	j := i
	for j < len(data) {
		switch data[j] {
		case ' ', '\t', '\r', '\n', '/', '>':
			return string(data[i:j])
		}
		j++
	}
	return string(data[i:j])
}

// Bytes returns the part with every rewritten text node spliced in.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(d.raw))

	last := 0
	for _, n := range d.nodes {
		if !n.dirty {
			continue
		}
		buf.Write(d.raw[last:n.start])
		writeRunText(&buf, n.qname, n.prefix(), n.text)
		last = n.end
	}
	buf.Write(d.raw[last:])
	return buf.Bytes()
}

// writeRunText writes text as one or more w:t elements, turning line
// feeds into w:br and tabs into w:tab siblings within the same run.
func writeRunText(buf *bytes.Buffer, qname, prefix, text string) {
	writeT := func(s string) {
		buf.WriteString("<" + qname + ` xml:space="preserve">`)
		_ = xml.EscapeText(buf, []byte(s))
		buf.WriteString("</" + qname + ">")
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	start := 0
	wrote := false
	for i := 0; i < len(text); i++ {
		var sep string
		switch text[i] {
		case '\n':
			sep = "<" + prefix + "br/>"
		case '\t':
			sep = "<" + prefix + "tab/>"
		default:
			continue
		}
		if i > start {
			writeT(text[start:i])
			wrote = true
		}
		buf.WriteString(sep)
		start = i + 1
	}
	if start < len(text) || !wrote {
		writeT(text[start:])
	}
}
