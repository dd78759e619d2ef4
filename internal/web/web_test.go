package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventwatcher/internal/config"
	"eventwatcher/internal/feed"
	"eventwatcher/internal/model"
)

type stubSource struct {
	snap feed.Snapshot
}

func (s *stubSource) Snapshot() feed.Snapshot { return s.snap }

func testSnapshot() feed.Snapshot {
	start := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	return feed.Snapshot{
		All: []model.Event{{
			Name:         "Test Fest",
			Category:     model.CategoryEvent,
			Start:        start,
			End:          start.Add(8 * time.Hour),
			HasSpawns:    true,
			LureDuration: model.DefaultLureDuration,
		}},
	}
}

func newTestServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewServer(cfg, &stubSource{snap: testSnapshot()})
}

func TestHealth(t *testing.T) {
	srv := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestInfoPageListsEvents(t *testing.T) {
	srv := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eventwatcher", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Test Fest")
}

func TestEventsAPI(t *testing.T) {
	srv := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"name":"Test Fest"`)
	assert.Contains(t, body, `"category":"event"`)
}

func TestCalendarExport(t *testing.T) {
	srv := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eventwatcher/calendar.ics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:Test Fest")
}

func TestBasicAuthProtectsAllButHealth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "ops", Password: "secret"}
	srv := newTestServer(cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eventwatcher", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/eventwatcher", nil)
	req.SetBasicAuth("ops", "secret")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
