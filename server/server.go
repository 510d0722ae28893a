package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"auto_docx_case_generator/docx"
	"auto_docx_case_generator/filler"
	"auto_docx_case_generator/generator"
)

//go:embed web/index.html
var embeddedWeb embed.FS

// Generator produces one artifact per request.
type Generator interface {
	Generate(ctx context.Context, req filler.Request) (filler.Artifact, error)
}

type Server struct {
	gen     Generator
	cfg     filler.ServerConfig
	store   *sessionStore
	page    *template.Template
	metrics *metrics
	reg     *prometheus.Registry
	logger  *zap.Logger
}

// New builds the server. A nil registry gets a private one.
func New(gen Generator, cfg filler.ServerConfig, logger *zap.Logger, reg *prometheus.Registry) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	if cfg.SessionTTL <= 0 || cfg.MaxUploadBytes <= 0 {
		return nil, errors.New("session ttl and upload limit must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	page, err := template.ParseFS(embeddedWeb, "web/index.html")
	if err != nil {
		return nil, err
	}

	m := newMetrics(reg)
	return &Server{
		gen:     gen,
		cfg:     cfg,
		store:   newStore(cfg.SessionTTL, func(n int) { m.sessions.Set(float64(n)) }),
		page:    page,
		metrics: m,
		reg:     reg,
		logger:  logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return s.logMiddleware(mux)
}

// --- Handlers ---

// view is the data rendered into the page.
type view struct {
	Subject         string
	Mode            string
	CaseDescription string
	Message         string
	Error           string
	Filename        string
	Generated       string
	Replacements    int
	Unfilled        []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v := view{Mode: string(generator.ModeTemplate)}
	s.withArtifact(&v, sess)
	s.render(w, http.StatusOK, v)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v := view{Mode: string(generator.ModeTemplate)}

	if !sess.sem.TryAcquire(1) {
		s.metrics.generations.WithLabelValues("unknown", "busy").Inc()
		v.Error = "A generation is already running for this session. Wait for it to finish."
		s.withArtifact(&v, sess)
		s.render(w, http.StatusConflict, v)
		return
	}
	defer sess.sem.Release(1)

	req, err := s.readRequest(w, r)
	v.Subject, v.CaseDescription = req.Subject, req.CaseDescription
	if req.Mode.Valid() {
		v.Mode = string(req.Mode)
	}
	mode := modeLabel(req.Mode)
	if err != nil {
		status, msg := errorResponse(err)
		s.metrics.generations.WithLabelValues(mode, outcome(err)).Inc()
		v.Error = msg
		s.withArtifact(&v, sess)
		s.render(w, status, v)
		return
	}

	start := time.Now()
	art, err := s.gen.Generate(r.Context(), req)
	s.metrics.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	s.metrics.generations.WithLabelValues(mode, outcome(err)).Inc()
	if err != nil {
		status, msg := errorResponse(err)
		s.logger.Warn("generate failed",
			zap.String("session", sess.id),
			zap.Int("status", status),
			zap.Error(err))
		v.Error = msg
		s.withArtifact(&v, sess)
		s.render(w, status, v)
		return
	}

	sess.setArtifact(art)
	v.Message = "Document generated."
	s.withArtifact(&v, sess)
	s.render(w, http.StatusOK, v)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r)
	if !ok {
		http.Error(w, "nothing to download", http.StatusNotFound)
		return
	}
	art, ok := sess.Artifact()
	if !ok {
		http.Error(w, "nothing to download", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	_, _ = w.Write(art.Data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// --- Helpers ---

// readRequest parses the multipart form. A missing upload is fine.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (filler.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return filler.Request{}, badForm(err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := filler.Request{
		Subject:         r.FormValue("subject"),
		Mode:            generator.Mode(r.FormValue("mode")),
		CaseDescription: r.FormValue("case_description"),
	}

	f, hdr, err := r.FormFile("template")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return req, nil
	case err != nil:
		return req, badForm(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return req, badForm(err)
	}
	req.Template = data
	req.TemplateName = hdr.Filename
	return req, nil
}

// badForm marks unreadable input as a validation failure. An upload over
// the limit keeps its own type.
func badForm(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", filler.ErrValidation, err)
}

func (s *Server) withArtifact(v *view, sess *session) {
	art, ok := sess.Artifact()
	if !ok {
		return
	}
	v.Filename = art.Filename
	v.Generated = art.CreatedAt.Format("2006-01-02 15:04")
	v.Replacements = art.Stats.Total()
	v.Unfilled = art.Stats.Unfilled
}

func (s *Server) render(w http.ResponseWriter, status int, v view) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, v); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// errorResponse maps a failure to a status and a message for the user.
func errorResponse(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "The uploaded template is too large."
	case errors.Is(err, filler.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, generator.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "The text service quota is exhausted. Wait a moment and try again."
	case errors.Is(err, generator.ErrRemoteUnavailable):
		return http.StatusBadGateway, "The text service is unavailable. Try again later."
	case errors.Is(err, generator.ErrParseFailure):
		return http.StatusBadGateway, "The text service returned an answer that could not be used. Try again."
	case errors.Is(err, docx.ErrTemplateStructure):
		return http.StatusUnprocessableEntity, "The template could not be processed. Verify the template and try again."
	default:
		return http.StatusInternalServerError, "Something went wrong while generating the document."
	}
}

// modeLabel keeps the mode label set closed whatever the form sends.
func modeLabel(m generator.Mode) string {
	switch {
	case m == "":
		return string(generator.ModeTemplate)
	case m.Valid():
		return string(m)
	default:
		return "invalid"
	}
}

func outcome(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &tooLarge), errors.Is(err, filler.ErrValidation):
		return "invalid"
	case errors.Is(err, generator.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, generator.ErrRemoteUnavailable):
		return "unavailable"
	case errors.Is(err, generator.ErrParseFailure):
		return "parse"
	case errors.Is(err, docx.ErrTemplateStructure):
		return "template"
	default:
		return "error"
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("elapsed", m.Duration))
	})
}
