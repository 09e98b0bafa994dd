package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/baseline"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/store"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, baseline.ErrNotFound), errors.Is(err, store.ErrNoSessions):
		status = http.StatusNotFound
	case errors.Is(err, baseline.ErrInvalidName), errors.Is(err, errBadSessionName):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadSessionName = errors.New("server: invalid session name")

// resolveSession maps the route name to an actual session file name. The
// literal name "latest" picks the most recent session.
func (s *Server) resolveSession(name string) (string, error) {
	if name == "latest" {
		return store.LatestSession(s.dataDir)
	}
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", errBadSessionName
	}
	return name, nil
}

func (s *Server) sessionPath(session string) string {
	return filepath.Join(s.dataDir, session)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := store.ListSessions(s.dataDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{"sessions": sessions}
	if len(sessions) > 0 {
		resp["latest"] = sessions[len(sessions)-1]
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// parseWindow reads optional from/to query bounds, in RFC 3339 or the
// session timestamp layout. A zero time means unbounded.
func parseWindow(r *http.Request) (from, to time.Time, err error) {
	parse := func(raw string) (time.Time, error) {
		if raw == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return time.ParseInLocation(store.TimestampLayout, raw, time.Local)
	}
	if from, err = parse(r.URL.Query().Get("from")); err != nil {
		return
	}
	to, err = parse(r.URL.Query().Get("to"))
	return
}

func (s *Server) samplesHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.resolveSession(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		s.writeError(w, errors.Join(errBadSessionName, err))
		return
	}

	if err := s.ingest(session); err != nil {
		s.writeError(w, err)
		return
	}
	series, err := s.qs.AllSeries(session, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"series":  series,
	})
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.resolveSession(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	samples, err := store.ReadSession(s.sessionPath(session))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session":     session,
		"data_points": len(samples),
		"metrics":     baseline.Aggregate(samples),
	})
}

func (s *Server) baselinesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.baselines.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.Baseline{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"baselines": list})
}

func (s *Server) baselineShowHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.baselines.Load(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

// compareHandler diffs a session (query param "session", default latest)
// against the named baseline.
func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	sessionParam := r.URL.Query().Get("session")
	if sessionParam == "" {
		sessionParam = "latest"
	}
	session, err := s.resolveSession(sessionParam)
	if err != nil {
		s.writeError(w, err)
		return
	}
	samples, err := store.ReadSession(s.sessionPath(session))
	if err != nil {
		s.writeError(w, err)
		return
	}

	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, errors.Join(errBadSessionName, err))
			return
		}
	}

	result, err := s.baselines.Compare(mux.Vars(r)["name"], session, samples, threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := store.ListSessions(s.dataDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	baselines, err := s.baselines.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	data := struct {
		Sessions  []string
		Baselines []*models.Baseline
		Metrics   []string
		Version   string
	}{
		Sessions:  sessions,
		Baselines: baselines,
		Metrics:   models.MetricNames,
		Version:   s.version,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering dashboard failed", "error", err)
	}
}
