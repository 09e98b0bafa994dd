// Package server is the read-only web dashboard: session files and baselines
// rendered as a chart page, backed by JSON endpoints over the SQLite query
// store. The collector keeps appending to the active CSV while this serves;
// ingestion happens on demand per request and only loads rows it has not
// seen before.
package server

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/baseline"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/store"
)

// SecurityHeadersMiddleware adds security-related headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// Server serves the dashboard over one data directory.
type Server struct {
	dataDir      string
	qs           *store.QueryStore
	baselines    *baseline.Manager
	logger       *slog.Logger
	handler      http.Handler
	pageTemplate *template.Template
	version      string
}

// New wires the dashboard routes over the data directory, query store, and
// baseline manager.
func New(dataDir string, qs *store.QueryStore, baselines *baseline.Manager, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pageTemplate, err := template.New("dashboard").Parse(dashboardPage)
	if err != nil {
		return nil, fmt.Errorf("server: parsing dashboard template: %w", err)
	}

	s := &Server{
		dataDir:      dataDir,
		qs:           qs,
		baselines:    baselines,
		logger:       logger,
		pageTemplate: pageTemplate,
		version:      version,
	}

	r := mux.NewRouter()
	r.Use(SecurityHeadersMiddleware)
	r.Use(MetricsMiddleware)

	r.HandleFunc("/", s.pageHandler).Methods("GET")
	r.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.sessionsHandler).Methods("GET")
	api.HandleFunc("/sessions/{name}/samples", s.samplesHandler).Methods("GET")
	api.HandleFunc("/sessions/{name}/summary", s.summaryHandler).Methods("GET")
	api.HandleFunc("/baselines", s.baselinesHandler).Methods("GET")
	api.HandleFunc("/baselines/{name}", s.baselineShowHandler).Methods("GET")
	api.HandleFunc("/compare/{name}", s.compareHandler).Methods("GET")

	s.handler = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ingest loads any unseen rows of the session into the query store and
// refreshes the exported gauges.
func (s *Server) ingest(session string) error {
	n, err := s.qs.IngestSession(s.sessionPath(session))
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	rowsIngestedTotal.Add(float64(n))

	latest, err := s.qs.LatestValues(session)
	if err != nil {
		s.logger.Warn("could not refresh sample gauges", "session", session, "error", err)
		return nil
	}
	for metric, v := range latest {
		lastSampleValue.WithLabelValues(metric).Set(v)
	}
	return nil
}
