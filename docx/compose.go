package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Run is a span of uniformly formatted text.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

// RichParagraph is a paragraph to compose. Level > 0 marks a heading.
type RichParagraph struct {
	Runs  []Run
	Level int
}

const (
	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
)

// heading font sizes in half-points, by level
var headingSize = map[int]int{1: 36, 2: 32, 3: 28, 4: 26, 5: 24, 6: 24}

// Compose builds a new single-part document from paragraphs.
func Compose(paras []RichParagraph) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	body.WriteString(`<w:document xmlns:w="` + wordNS + `"><w:body>`)
	for _, p := range paras {
		writeParagraph(&body, p)
	}
	body.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1417" w:right="1701" w:bottom="1417" w:left="1701" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{MainPart, body.Bytes()},
	}
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return nil, structureErr("compose", part.name, err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(part.data)); err != nil {
			return nil, structureErr("compose", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, structureErr("compose", "", err)
	}
	return buf.Bytes(), nil
}

func writeParagraph(buf *bytes.Buffer, p RichParagraph) {
	buf.WriteString("<w:p>")
	if p.Level > 0 {
		buf.WriteString(`<w:pPr><w:spacing w:before="240" w:after="120"/></w:pPr>`)
	}
	for _, r := range p.Runs {
		if r.Text == "" {
			continue
		}
		bold := r.Bold || p.Level > 0
		buf.WriteString("<w:r>")
		if bold || r.Italic {
			buf.WriteString("<w:rPr>")
			if bold {
				buf.WriteString("<w:b/>")
			}
			if r.Italic {
				buf.WriteString("<w:i/>")
			}
			if size, ok := headingSize[p.Level]; ok {
				fmt.Fprintf(buf, `<w:sz w:val="%d"/>`, size)
			}
			buf.WriteString("</w:rPr>")
		}
		writeRunText(buf, "w:t", "w:", r.Text)
		buf.WriteString("</w:r>")
	}
	buf.WriteString("</w:p>")
}
