package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"schoolcal/internal/config"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// Server exposes the generated calendar feed over HTTP: the raw ICS
// payload for calendar clients and a JSON event list for tooling.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// Latest generated feed. Replaced wholesale on every regeneration;
	// handlers only ever read it.
	feedMu  sync.RWMutex
	payload string
	events  []model.EventInstance
	updated time.Time
	hasFeed bool
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetFeed publishes a freshly generated feed to the HTTP handlers.
func (s *Server) SetFeed(payload string, events []model.EventInstance) {
	s.feedMu.Lock()
	s.payload = payload
	s.events = events
	s.updated = time.Now()
	s.hasFeed = true
	s.feedMu.Unlock()
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
// Empty username or password counts as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable for probes without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schoolcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	s.feedMu.RLock()
	payload, ok := s.payload, s.hasFeed
	s.feedMu.RUnlock()

	if !ok {
		writeError(w, http.StatusServiceUnavailable, "feed not generated yet")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

// eventResponse is the JSON shape of one resolved event.
type eventResponse struct {
	UID     string `json:"uid"`
	Date    string `json:"date"`
	Period  string `json:"period"`
	Subject string `json:"subject"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type eventsResponse struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Events    []eventResponse `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.feedMu.RLock()
	events, updated, ok := s.events, s.updated, s.hasFeed
	s.feedMu.RUnlock()

	if !ok {
		writeError(w, http.StatusServiceUnavailable, "feed not generated yet")
		return
	}

	resp := eventsResponse{
		UpdatedAt: updated,
		Events:    make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, eventResponse{
			UID:     e.UID,
			Date:    e.Date.Format("2006-01-02"),
			Period:  e.PeriodID,
			Subject: e.SubjectID,
			Summary: e.Summary,
			Start:   e.Start.Format(time.RFC3339),
			End:     e.End.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
