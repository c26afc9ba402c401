package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"orgcal/internal/config"
	"orgcal/internal/extract"
)

const sampleOrg = `* Work
** Report
SCHEDULED: <2024-01-10 Wed 09:00>
:LOGBOOK:
CLOCK: [2024-01-10 Wed 09:00]--[2024-01-10 Wed 10:30] =>  1:30
CLOCK: [2024-01-15 Mon 11:00]
:END:
** Taxes
DEADLINE: <2024-01-20 Sat>
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "org", "work.org"), sampleOrg)
	writeFile(t, filepath.Join(root, "family", "a.ics"), "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:a\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")
	writeFile(t, filepath.Join(root, "family", "sub", "b.ics"), "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:b\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")
	writeFile(t, filepath.Join(root, "timeline", "index.html"), "<html>timeline</html>")

	cfg := config.DefaultConfig()
	cfg.OrgDirectory = filepath.Join(root, "org")
	cfg.TimelineDir = filepath.Join(root, "timeline")
	cfg.Calendars = []config.CalendarConfig{{
		ID:          "family",
		Directory:   filepath.Join(root, "family"),
		Name:        "Family",
		Description: "Shared family calendar",
	}}
	if mutate != nil {
		mutate(cfg)
	}

	s := NewServer(cfg, loc, extract.NewCollector(loc))
	s.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, loc) }
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := get(t, ts, "/health")
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
}

func TestOrgFeed(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/org/clocks/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("clock events = %d, want 2", n)
	}
	// The open clock ends at the injected now, 11:00 UTC.
	if !strings.Contains(body, "DTEND:20240115T110000Z") {
		t.Errorf("open clock not resolved to now:\n%s", body)
	}

	_, body = get(t, ts, "/org/active-deadline/")
	if !strings.Contains(body, "DTSTART;VALUE=DATE:20240120") {
		t.Errorf("midnight deadline not all-day:\n%s", body)
	}
}

func TestOrgFeed_UnknownKind(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, _ := get(t, ts, "/org/birthdays/")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFeedRoutes_ExactPaths(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/org/clocks/anything", "/org/clocks/x/", "/calendar/family/extra.ics"} {
		resp, _ := get(t, ts, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestOrgFeed_MissingDirectory(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.OrgDirectory = filepath.Join(t.TempDir(), "missing") })
	resp, _ := get(t, ts, "/org/clocks/")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCalendar(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/calendar/family/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
	if n := strings.Count(body, "BEGIN:VCALENDAR"); n != 1 {
		t.Errorf("envelopes = %d, want 1", n)
	}
	if !strings.Contains(body, "X-WR-CALNAME;VALUE=TEXT:Family") {
		t.Errorf("missing calendar name:\n%s", body)
	}

	resp, _ = get(t, ts, "/calendar/work/")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown calendar status = %d, want 404", resp.StatusCode)
	}
}

func TestTimeline(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/timeline/timeline.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var days [][]json.RawMessage
	if err := json.Unmarshal([]byte(body), &days); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2: %s", len(days), body)
	}
	if !strings.Contains(body, `"entry":"Work->Report"`) {
		t.Errorf("entry path not joined:\n%s", body)
	}

	resp, body = get(t, ts, "/timeline/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "timeline") {
		t.Errorf("static index = %d %q", resp.StatusCode, body)
	}
}

func TestTimeline_NoStaticDir(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.TimelineDir = "" })
	resp, _ := get(t, ts, "/timeline/index.html")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	})

	resp, _ := get(t, ts, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health behind auth: %d", resp.StatusCode)
	}
	resp, _ = get(t, ts, "/org/clocks/")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/org/clocks/", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("me", "secret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", authed.StatusCode)
	}
}
