// Package web serves the plugin info page and a small read-only API over
// the watcher's current state.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gorilla/mux"

	"eventwatcher/internal/config"
	"eventwatcher/internal/feed"
	appLog "eventwatcher/internal/log"
)

// SnapshotSource yields the watcher's current classification snapshot.
type SnapshotSource interface {
	Snapshot() feed.Snapshot
}

// Server provides the HTTP surface: info page, health, events API and an
// iCalendar export of the known events.
type Server struct {
	cfg    *config.Config
	source SnapshotSource
	router *mux.Router
}

// NewServer constructs a Server over the given snapshot source.
func NewServer(cfg *config.Config, source SnapshotSource) *Server {
	s := &Server{
		cfg:    cfg,
		source: source,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/eventwatcher", s.handleInfoPage).Methods(http.MethodGet)
	s.router.HandleFunc("/eventwatcher/calendar.ics", s.handleCalendar).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
}

// Handler returns the HTTP handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	return http.ListenAndServe(s.cfg.Listen, s.Handler())
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EventWatcher", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

var infoPage = template.Must(template.New("info").Parse(`<!DOCTYPE html>
<html>
<head><title>Event Watcher</title></head>
<body>
<h1>Event Watcher</h1>
<p>Automatically puts events that boost spawns in your database.</p>
<h2>Upcoming events</h2>
<table border="1" cellpadding="4">
<tr><th>Name</th><th>Category</th><th>Start</th><th>End</th></tr>
{{range .Events}}<tr><td>{{.Name}}</td><td>{{.Category}}</td><td>{{.Start.Format "2006-01-02 15:04"}}</td><td>{{.End.Format "2006-01-02 15:04"}}</td></tr>
{{end}}</table>
<p><a href="/eventwatcher/calendar.ics">iCalendar export</a> &middot; <a href="/api/events">JSON</a></p>
</body>
</html>
`))

func (s *Server) handleInfoPage(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := infoPage.Execute(w, map[string]any{"Events": snap.All}); err != nil {
		appLog.Error("info page render failed", err)
	}
}

type eventJSON struct {
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	HasSpawns     bool      `json:"has_spawnpoints"`
	HasQuests     bool      `json:"has_quests"`
	HasPoolEffect bool      `json:"has_pokemon_pool_effect"`
	LureDuration  int       `json:"lure_duration"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()
	out := make([]eventJSON, 0, len(snap.All))
	for _, ev := range snap.All {
		out = append(out, eventJSON{
			Name:          ev.Name,
			Category:      string(ev.Category),
			Start:         ev.Start,
			End:           ev.End,
			HasSpawns:     ev.HasSpawns,
			HasQuests:     ev.HasQuests,
			HasPoolEffect: ev.HasPoolEffect,
			LureDuration:  ev.LureDuration,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		appLog.Error("events encode failed", err)
	}
}

// handleCalendar exports the current events as an iCalendar feed so
// operators can subscribe from a regular calendar client.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//eventwatcher//EN")

	for i, ev := range snap.All {
		ve := cal.AddEvent(fmt.Sprintf("%s-%d@eventwatcher", ev.Start.Format("20060102T150405"), i))
		ve.SetSummary(ev.Name)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetDescription("category: " + string(ev.Category))
		ve.SetDtStampTime(time.Now())
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := cal.SerializeTo(w); err != nil {
		appLog.Error("calendar serialize failed", err)
	}
}
