// Package docx reads WordprocessingML packages, rewrites marker text in
// their paragraphs and writes the result back as a new package.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

const (
	// MainPart is the body part every document package carries.
	MainPart = "word/document.xml"

	// ContentType is the MIME type of a .docx artifact.
	ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

var headerFooterPart = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

// Package is an opened office package. Parts are read lazily from the
// source archive; parts set with SetPart shadow the originals on write.
type Package struct {
	files    []*zip.File
	parts    map[string]*zip.File
	replaced map[string][]byte
}

// Open reads a package from r.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, structureErr("open", "", fmt.Errorf("failed to read zip file: %w", err))
	}

	p := &Package{
		files:    zr.File,
		parts:    make(map[string]*zip.File, len(zr.File)),
		replaced: make(map[string][]byte),
	}
	for _, f := range zr.File {
		p.parts[f.Name] = f
	}

	if _, ok := p.parts[MainPart]; !ok {
		return nil, structureErr("open", MainPart, fmt.Errorf("not a valid DOCX file: missing %s", MainPart))
	}
	return p, nil
}

// OpenBytes reads a package held in memory.
func OpenBytes(data []byte) (*Package, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFile reads a package from disk. The whole file is loaded so the
// on-disk template is never held open.
func OpenFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, structureErr("open", path, err)
	}
	return OpenBytes(data)
}

// Part returns the current content of a part.
func (p *Package) Part(name string) ([]byte, error) {
	if data, ok := p.replaced[name]; ok {
		return data, nil
	}
	f, ok := p.parts[name]
	if !ok {
		return nil, structureErr("read", name, fmt.Errorf("part not found"))
	}

	rc, err := f.Open()
	if err != nil {
		return nil, structureErr("read", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, structureErr("read", name, err)
	}
	return data, nil
}

// SetPart replaces the content of an existing part.
func (p *Package) SetPart(name string, data []byte) error {
	if _, ok := p.parts[name]; !ok {
		return structureErr("write", name, fmt.Errorf("part not found"))
	}
	p.replaced[name] = data
	return nil
}

// TextParts lists the parts carrying document text: the main part,
// followed by headers and footers in name order when requested.
func (p *Package) TextParts(includeHeaders bool) []string {
	names := []string{MainPart}
	if !includeHeaders {
		return names
	}
	var extra []string
	for name := range p.parts {
		if headerFooterPart.MatchString(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Document parses a text part.
func (p *Package) Document(name string) (*Document, error) {
	data, err := p.Part(name)
	if err != nil {
		return nil, err
	}
	return ParseDocument(name, data)
}

// WriteTo serialises the package, keeping the original part order.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, f := range p.files {
		data, ok := p.replaced[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return cw.n, structureErr("write", f.Name, err)
			}
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return cw.n, structureErr("write", f.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return cw.n, structureErr("write", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, structureErr("write", "", err)
	}
	return cw.n, nil
}

// Bytes serialises the package into memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
