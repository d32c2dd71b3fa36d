// Package httpapi exposes the note pipeline and the note and style stores
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"talknote-go/internal/logger"
	"talknote-go/internal/metrics"
	"talknote-go/internal/pipeline"
	"talknote-go/internal/storage"
	"talknote-go/internal/transcription"
	"talknote-go/internal/types"
)

// DefaultMaxUpload bounds multipart audio uploads.
const DefaultMaxUpload = 100 << 20

type Pipeline interface {
	ProcessAudioNote(ctx context.Context, asset types.AudioAsset, styleID string) (*pipeline.Result, error)
	ReprocessNote(ctx context.Context, noteID string) (*pipeline.Result, error)
	TranscribeOnly(ctx context.Context, asset types.AudioAsset, language string) (transcription.Result, error)
	StyleTranscript(ctx context.Context, transcript, styleIdent string) (*pipeline.Styled, error)
}

type NoteStore interface {
	FindByID(ctx context.Context, id string) (types.NoteRecord, error)
	Update(ctx context.Context, n types.NoteRecord) (types.NoteRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]types.NoteRecord, error)
}

type StyleStore interface {
	Create(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, error)
	Upsert(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, bool, error)
	FindByNameOrID(ctx context.Context, ident string) (types.StyleDescriptor, error)
	Update(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]types.StyleDescriptor, error)
}

type Deps struct {
	Pipeline Pipeline
	Notes    NoteStore
	Styles   StyleStore
	// Objects, when set, lets note deletion remove the recording too.
	Objects storage.ObjectStore
}

type Server struct {
	deps      Deps
	log       *logger.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	maxUpload int64
}

type Option func(*Server)

func WithLogger(log *logger.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics records request counts on m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

func NewServer(deps Deps, opts ...Option) (*Server, error) {
	switch {
	case deps.Pipeline == nil:
		return nil, errors.New("httpapi: pipeline is required")
	case deps.Notes == nil:
		return nil, errors.New("httpapi: note store is required")
	case deps.Styles == nil:
		return nil, errors.New("httpapi: style store is required")
	}
	s := &Server{deps: deps, log: logger.New(), maxUpload: DefaultMaxUpload}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Component("httpapi")
	return s, nil
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /languages", s.languages)

	mux.HandleFunc("POST /notes", s.createNote)
	mux.HandleFunc("GET /notes", s.listNotes)
	mux.HandleFunc("GET /notes/export", s.exportNotes)
	mux.HandleFunc("GET /notes/{id}", s.getNote)
	mux.HandleFunc("PUT /notes/{id}", s.updateNote)
	mux.HandleFunc("DELETE /notes/{id}", s.deleteNote)
	mux.HandleFunc("POST /notes/{id}/reprocess", s.reprocessNote)

	mux.HandleFunc("POST /transcribe", s.transcribe)
	mux.HandleFunc("POST /style", s.styleTranscript)

	mux.HandleFunc("GET /styles", s.listStyles)
	mux.HandleFunc("POST /styles", s.createStyle)
	mux.HandleFunc("POST /styles/import", s.importStyles)
	mux.HandleFunc("GET /styles/{ident}", s.getStyle)
	mux.HandleFunc("PUT /styles/{id}", s.updateStyle)
	mux.HandleFunc("DELETE /styles/{id}", s.deleteStyle)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s.instrument(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		r.Header.Set("X-Request-ID", reqID)
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.RecordHTTP(pattern, strconv.Itoa(rec.status))
		entry := s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Info("request handled")
		}
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, transcription.SupportedLanguages())
}
