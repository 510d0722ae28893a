// Package filler runs one generation: it asks the text service for
// content and turns it into a downloadable document.
package filler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"auto_docx_case_generator/docx"
	"auto_docx_case_generator/generator"
)

// ErrValidation marks requests rejected before any remote call.
var ErrValidation = errors.New("invalid request")

// Generator is the part of generator.Agent the filler needs.
type Generator interface {
	Markers(ctx context.Context, req generator.Request) ([]generator.Pair, error)
	Essay(ctx context.Context, req generator.Request) (generator.RichText, error)
	Delimiters() generator.Delimiters
}

// Request describes the user's input.
type Request struct {
	Subject         string
	Mode            generator.Mode
	CaseDescription string
	// Template is an uploaded template. Empty means the bundled one.
	Template     []byte
	TemplateName string
}

// Artifact is a generated document ready for download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Mode        generator.Mode
	Stats       docx.Stats
	CreatedAt   time.Time
}

// Filler orchestrates generator and document rewrite.
type Filler struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

func New(gen Generator, cfg Config, logger *zap.Logger) (*Filler, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{gen: gen, cfg: cfg, logger: logger}, nil
}

// Generate validates req, calls the generator once and builds the
// artifact. Any failure leaves nothing behind.
func (f *Filler) Generate(ctx context.Context, req Request) (Artifact, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.CaseDescription = strings.TrimSpace(req.CaseDescription)
	if req.Mode == "" {
		req.Mode = generator.ModeTemplate
	}
	if err := f.validate(req); err != nil {
		return Artifact{}, err
	}

	start := time.Now()
	var (
		data  []byte
		stats docx.Stats
		err   error
	)
	switch req.Mode {
	case generator.ModeEssay:
		data, err = f.essay(ctx, req)
	default:
		data, stats, err = f.fillTemplate(ctx, req)
	}
	if err != nil {
		f.logger.Warn("generation failed",
			zap.String("subject", req.Subject),
			zap.String("mode", string(req.Mode)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return Artifact{}, err
	}

	art := Artifact{
		Filename:    Filename(f.cfg.Output.FilenamePrefix, req.Subject),
		ContentType: docx.ContentType,
		Data:        data,
		Mode:        req.Mode,
		Stats:       stats,
		CreatedAt:   time.Now(),
	}
	f.logger.Info("generation done",
		zap.String("subject", req.Subject),
		zap.String("mode", string(req.Mode)),
		zap.String("template", req.TemplateName),
		zap.String("filename", art.Filename),
		zap.Int("replacements", stats.Total()),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return art, nil
}

func (f *Filler) validate(req Request) error {
	if req.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, req.Mode)
	}
	if req.Mode == generator.ModeTemplate && len(req.Template) == 0 && f.cfg.Template.Path == "" {
		return fmt.Errorf("%w: upload a template", ErrValidation)
	}
	return nil
}

func (f *Filler) openTemplate(req Request) (*docx.Package, error) {
	if len(req.Template) > 0 {
		return docx.OpenBytes(req.Template)
	}
	// Loaded per request so edits to the bundled file are picked up.
	return docx.OpenFile(f.cfg.Template.Path)
}

func (f *Filler) fillTemplate(ctx context.Context, req Request) ([]byte, docx.Stats, error) {
	pkg, err := f.openTemplate(req)
	if err != nil {
		return nil, docx.Stats{}, err
	}

	delims := f.gen.Delimiters()
	found, err := f.templateMarkers(pkg, delims)
	if err != nil {
		return nil, docx.Stats{}, err
	}

	names := markerNames(found, delims)
	if len(names) == 0 {
		names = append(names, f.cfg.Template.DefaultKeys...)
	}
	if len(names) == 0 {
		return nil, docx.Stats{}, &docx.StructureError{Op: "inspect", Part: docx.MainPart, Err: errors.New("template contains no markers")}
	}

	pairs, err := f.gen.Markers(ctx, generator.Request{
		Subject:         req.Subject,
		CaseDescription: req.CaseDescription,
		Keys:            names,
	})
	if err != nil {
		return nil, docx.Stats{}, err
	}

	markers, err := buildMarkers(pairs, found, delims)
	if err != nil {
		return nil, docx.Stats{}, err
	}

	data, stats, err := docx.FillPackage(pkg, markers, docx.FillOptions{
		IncludeHeaders: f.cfg.Template.IncludeHeaders,
		Open:           delims.Open,
		Close:          delims.Close,
	})
	if err != nil {
		return nil, docx.Stats{}, err
	}
	if len(stats.Unfilled) > 0 {
		f.logger.Warn("markers left unfilled", zap.Strings("markers", stats.Unfilled))
	}
	return data, stats, nil
}

// templateMarkers lists the markers written in the template, in order.
func (f *Filler) templateMarkers(pkg *docx.Package, delims generator.Delimiters) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, part := range pkg.TextParts(f.cfg.Template.IncludeHeaders) {
		doc, err := pkg.Document(part)
		if err != nil {
			return nil, err
		}
		for _, m := range doc.FindMarkers(delims.Open, delims.Close) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func markerNames(found []string, delims generator.Delimiters) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range found {
		name, err := generator.MarkerName(m, delims)
		if err != nil || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// buildMarkers keys every value by its canonical marker and by each
// spelling of it found in the template, e.g. "{{ NAME }}".
func buildMarkers(pairs []generator.Pair, found []string, delims generator.Delimiters) (*docx.Markers, error) {
	spellings := make(map[string][]string)
	for _, m := range found {
		name, err := generator.MarkerName(m, delims)
		if err != nil {
			continue
		}
		canonical := delims.Wrap(name)
		if m != canonical {
			spellings[canonical] = append(spellings[canonical], m)
		}
	}

	out := docx.NewMarkers()
	for _, p := range pairs {
		if err := out.Set(p.Key, p.Value); err != nil {
			return nil, fmt.Errorf("%w: %v", generator.ErrParseFailure, err)
		}
		for _, alt := range spellings[p.Key] {
			if err := out.Set(alt, p.Value); err != nil {
				return nil, fmt.Errorf("%w: %v", generator.ErrParseFailure, err)
			}
		}
	}
	return out, nil
}

func (f *Filler) essay(ctx context.Context, req Request) ([]byte, error) {
	rt, err := f.gen.Essay(ctx, generator.Request{
		Subject:         req.Subject,
		CaseDescription: req.CaseDescription,
	})
	if err != nil {
		return nil, err
	}
	return docx.Compose(toDocx(rt))
}

func toDocx(rt generator.RichText) []docx.RichParagraph {
	out := make([]docx.RichParagraph, 0, len(rt))
	for _, p := range rt {
		rp := docx.RichParagraph{Level: p.Level}
		for _, s := range p.Spans {
			rp.Runs = append(rp.Runs, docx.Run{Text: s.Text, Bold: s.Bold, Italic: s.Italic})
		}
		out = append(out, rp)
	}
	return out
}

var unsafeFilename = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// Filename derives the download name from the subject: whitespace runs
// become underscores and characters unsafe in file names are dropped.
func Filename(prefix, subject string) string {
	name := strings.Join(strings.Fields(subject), "_")
	name = unsafeFilename.ReplaceAllString(name, "")
	if name == "" {
		name = "document"
	}
	prefix = unsafeFilename.ReplaceAllString(strings.Join(strings.Fields(prefix), "_"), "")
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name + ".docx"
}
