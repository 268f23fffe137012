package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/film"
	"github.com/JakeFAU/film-scraper/internal/metrics"
	"github.com/JakeFAU/film-scraper/internal/storage/jsonfile"
)

// SnapshotReader loads the current film list. jsonfile.ReadSnapshot is the
// production implementation.
type SnapshotReader func(path string) ([]film.Record, error)

// Config controls the Server.
type Config struct {
	SnapshotPath   string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the snapshot document.
type Server struct {
	router  chi.Router
	cfg     Config
	read    SnapshotReader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. A nil read uses
// jsonfile.ReadSnapshot.
func NewServer(cfg Config, read SnapshotReader, m *metrics.Metrics, logger *zap.Logger) *Server {
	if read == nil {
		read = jsonfile.ReadSnapshot
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, read: read, metrics: m, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(m.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/", s.index)
	r.Get("/films.json", s.rawSnapshot)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/films", s.listFilms)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if _, err := os.Stat(s.cfg.SnapshotPath); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no snapshot"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// listFilms returns the snapshot, optionally narrowed by case-insensitive
// substring filters on title, director and country.
func (s *Server) listFilms(w http.ResponseWriter, r *http.Request) {
	records, ok := s.load(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	records = filterRecords(records, q.Get("title"), q.Get("director"), q.Get("country"))
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) rawSnapshot(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.cfg.SnapshotPath)
	if err != nil {
		s.snapshotError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write snapshot response", zap.Error(err))
	}
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	records, ok := s.load(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, records); err != nil {
		s.logger.Warn("render film table", zap.Error(err))
	}
}

func (s *Server) load(w http.ResponseWriter) ([]film.Record, bool) {
	records, err := s.read(s.cfg.SnapshotPath)
	if err != nil {
		s.snapshotError(w, err)
		return nil, false
	}
	if records == nil {
		records = []film.Record{}
	}
	return records, true
}

func (s *Server) snapshotError(w http.ResponseWriter, err error) {
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	s.logger.Error("read snapshot", zap.String("path", s.cfg.SnapshotPath), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "snapshot unreadable")
}

func filterRecords(records []film.Record, title, director, country string) []film.Record {
	if title == "" && director == "" && country == "" {
		return records
	}
	out := make([]film.Record, 0, len(records))
	for _, rec := range records {
		if containsFold(rec.Title, title) && containsFold(rec.Director, director) && containsFold(rec.Country, country) {
			out = append(out, rec)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Highest-grossing films</title></head>
<body>
<table>
<thead><tr><th>Title</th><th>Release</th><th>Director</th><th>Box office</th><th>Country</th></tr></thead>
<tbody id="films-table">
{{- range .}}
<tr><td>{{.Title}}</td><td>{{.ReleaseYear}}</td><td>{{.Director}}</td><td>{{.BoxOffice}}</td><td>{{.Country}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", requestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
