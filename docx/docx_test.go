package docx

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantErr bool
	}{
		{
			name: "valid package",
			data: func(t *testing.T) []byte {
				return buildDocx(t, map[string][]byte{MainPart: bodyXML(para("x"))})
			},
		},
		{
			name:    "not a zip",
			data:    func(*testing.T) []byte { return []byte("not a zip file") },
			wantErr: true,
		},
		{
			name: "missing document part",
			data: func(t *testing.T) []byte {
				return buildDocx(t, map[string][]byte{"word/other.xml": []byte("<x/>")})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := OpenBytes(tt.data(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTemplateStructure)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, pkg)
		})
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.docx")
	require.NoError(t, os.WriteFile(path, buildDocx(t, map[string][]byte{MainPart: bodyXML(para("x"))}), 0o644))

	pkg, err := OpenFile(path)
	require.NoError(t, err)
	doc, err := pkg.Document(MainPart)
	require.NoError(t, err)
	assert.Len(t, doc.Paragraphs(), 1)

	_, err = OpenFile(filepath.Join(dir, "missing.docx"))
	assert.ErrorIs(t, err, ErrTemplateStructure)
}

func TestPackage_RoundTripKeepsParts(t *testing.T) {
	styles := []byte(`<?xml version="1.0"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`)
	pkg, err := OpenBytes(buildDocx(t, map[string][]byte{
		MainPart:          bodyXML(para("a")),
		"word/styles.xml": styles,
	}))
	require.NoError(t, err)

	require.NoError(t, pkg.SetPart(MainPart, bodyXML(para("b"))))
	assert.Error(t, pkg.SetPart("word/unknown.xml", nil))

	var buf bytes.Buffer
	n, err := pkg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	again, err := OpenBytes(buf.Bytes())
	require.NoError(t, err)
	got, err := again.Part("word/styles.xml")
	require.NoError(t, err)
	assert.Equal(t, styles, got)
	assert.Equal(t, []string{"b"}, paragraphTexts(t, buf.Bytes(), MainPart))
}

func TestParseDocument_Structure(t *testing.T) {
	body := para("one") + table(para("cell a"), para("cell b")) + para("two")
	doc, err := ParseDocument(MainPart, bodyXML(body))
	require.NoError(t, err)

	require.Len(t, doc.Blocks, 3)
	_, isPara := doc.Blocks[0].(*Paragraph)
	assert.True(t, isPara)
	tbl, isTable := doc.Blocks[1].(*Table)
	require.True(t, isTable)
	require.Len(t, tbl.Rows, 1)
	assert.Len(t, tbl.Rows[0].Cells, 2)

	var texts []string
	for _, p := range doc.Paragraphs() {
		texts = append(texts, p.Text())
	}
	assert.Equal(t, []string{"one", "cell a", "cell b", "two"}, texts)
}

func TestParseDocument_Errors(t *testing.T) {
	_, err := ParseDocument(MainPart, []byte(docHead+`<w:tr/>`+docTail))
	assert.ErrorIs(t, err, ErrTemplateStructure)

	_, err = ParseDocument(MainPart, []byte(docHead))
	assert.ErrorIs(t, err, ErrTemplateStructure)
}

func TestCompose(t *testing.T) {
	data, err := Compose([]RichParagraph{
		{Level: 1, Runs: []Run{{Text: "Title"}}},
		{Runs: []Run{{Text: "Plain "}, {Text: "strong", Bold: true}, {Text: " end"}}},
		{Runs: []Run{{Text: "line one\nline two"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Plain strong end", "line oneline two"}, paragraphTexts(t, data, MainPart))

	pkg, err := OpenBytes(data)
	require.NoError(t, err)
	raw, err := pkg.Part(MainPart)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `<w:b/>`)
	assert.Contains(t, string(raw), `<w:sz w:val="36"/>`)
	assert.Contains(t, string(raw), `<w:br/>`)
}
