package generator

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ParseRichText converts a Markdown reply into paragraphs of spans.
// **strong** becomes bold, *emphasis* italic, headings keep their level
// and list items are prefixed with a bullet or their number.
func ParseRichText(md string) (RichText, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return nil, parseErr("empty reply")
	}
	src := []byte(md)
	root := markdown.Parser().Parse(text.NewReader(src))

	var out RichText
	walkBlocks(root, src, "", &out)
	if len(out) == 0 {
		return nil, parseErr("reply holds no text")
	}
	return out, nil
}

func walkBlocks(parent ast.Node, src []byte, prefix string, out *RichText) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			appendParagraph(out, Paragraph{Level: node.Level, Spans: inlineSpans(node, src)})
		case *ast.Paragraph, *ast.TextBlock:
			appendParagraph(out, Paragraph{Spans: withPrefix(prefix, inlineSpans(node, src))})
			prefix = indentOf(prefix)
		case *ast.List:
			i := node.Start
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				marker := "• "
				if node.IsOrdered() {
					marker = fmt.Sprintf("%d. ", i)
					i++
				}
				walkBlocks(item, src, indentOf(prefix)+marker, out)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			appendParagraph(out, Paragraph{Spans: []Span{{Text: linesOf(node, src)}}})
		case *ast.ThematicBreak, *ast.HTMLBlock:
			// no text
		default:
			walkBlocks(node, src, prefix, out)
		}
	}
}

// indentOf turns a list marker prefix into blank space of the same width
// so continuation paragraphs line up under the item text.
func indentOf(prefix string) string {
	return strings.Repeat(" ", len([]rune(prefix)))
}

func withPrefix(prefix string, spans []Span) []Span {
	if prefix == "" || len(spans) == 0 {
		return spans
	}
	if first := spans[0]; !first.Bold && !first.Italic {
		spans[0].Text = prefix + first.Text
		return spans
	}
	return append([]Span{{Text: prefix}}, spans...)
}

func appendParagraph(out *RichText, p Paragraph) {
	if len(p.Spans) == 0 {
		return
	}
	*out = append(*out, p)
}

func linesOf(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func inlineSpans(n ast.Node, src []byte) []Span {
	var spans []Span
	var walk func(n ast.Node, bold, italic bool)
	add := func(s string, bold, italic bool) {
		if s == "" {
			return
		}
		if last := len(spans) - 1; last >= 0 && spans[last].Bold == bold && spans[last].Italic == italic {
			spans[last].Text += s
			return
		}
		spans = append(spans, Span{Text: s, Bold: bold, Italic: italic})
	}
	walk = func(n ast.Node, bold, italic bool) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				add(string(node.Segment.Value(src)), bold, italic)
				switch {
				case node.HardLineBreak():
					add("\n", bold, italic)
				case node.SoftLineBreak():
					add(" ", bold, italic)
				}
			case *ast.String:
				add(string(node.Value), bold, italic)
			case *ast.Emphasis:
				if node.Level >= 2 {
					walk(node, true, italic)
				} else {
					walk(node, bold, true)
				}
			case *ast.AutoLink:
				add(string(node.URL(src)), bold, italic)
			case *ast.RawHTML, *ast.Image:
				// dropped
			default:
				walk(node, bold, italic)
			}
		}
	}
	walk(n, false, false)

	if len(spans) > 0 {
		spans[len(spans)-1].Text = strings.TrimRight(spans[len(spans)-1].Text, " \n")
		if spans[len(spans)-1].Text == "" {
			spans = spans[:len(spans)-1]
		}
	}
	return spans
}

// plainText flattens rich text into lines, dropping emphasis.
func (rt RichText) plainText() string {
	lines := make([]string, 0, len(rt))
	for _, p := range rt {
		var sb strings.Builder
		for _, s := range p.Spans {
			sb.WriteString(s.Text)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}
