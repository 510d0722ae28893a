package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const docHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

// bodyXML wraps body content in a document part.
func bodyXML(body string) []byte {
	return []byte(docHead + body + docTail)
}

// para builds a paragraph with one run per text.
func para(texts ...string) string {
	var sb bytes.Buffer
	sb.WriteString("<w:p>")
	for _, t := range texts {
		sb.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + t + `</w:t></w:r>`)
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

func table(cells ...string) string {
	var sb bytes.Buffer
	sb.WriteString("<w:tbl><w:tblPr/><w:tr>")
	for _, c := range cells {
		sb.WriteString("<w:tc><w:tcPr/>" + c + "</w:tc>")
	}
	sb.WriteString("</w:tr></w:tbl>")
	return sb.String()
}

// buildDocx creates a minimal package holding the given parts.
func buildDocx(t *testing.T, parts map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	names := []string{"[Content_Types].xml", "_rels/.rels"}
	all := map[string][]byte{
		"[Content_Types].xml": []byte(contentTypesXML),
		"_rels/.rels":         []byte(relsXML),
	}
	for name, data := range parts {
		names = append(names, name)
		all[name] = data
	}
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(all[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openBody(t *testing.T, body string) *Package {
	t.Helper()
	pkg, err := OpenBytes(buildDocx(t, map[string][]byte{MainPart: bodyXML(body)}))
	require.NoError(t, err)
	return pkg
}

func paragraphTexts(t *testing.T, data []byte, part string) []string {
	t.Helper()
	pkg, err := OpenBytes(data)
	require.NoError(t, err)
	doc, err := pkg.Document(part)
	require.NoError(t, err)
	var out []string
	for _, p := range doc.Paragraphs() {
		out = append(out, p.Text())
	}
	return out
}

func markers(t *testing.T, kv ...string) *Markers {
	t.Helper()
	m := NewMarkers()
	for i := 0; i+1 < len(kv); i += 2 {
		require.NoError(t, m.Set(kv[i], kv[i+1]))
	}
	return m
}
