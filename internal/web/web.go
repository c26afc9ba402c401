// Package web serves the synthesized feeds over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"orgcal/internal/config"
	"orgcal/internal/extract"
	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/synth"
)

const calendarContentType = "text/calendar; charset=utf-8"

// Server provides the feed endpoints:
//
//	GET /health
//	GET /calendar/{id}/          merged .ics directory
//	GET /org/{kind}/             outline entries of one kind as iCalendar
//	GET /timeline/timeline.json  clock/scheduled timeline
//	GET /timeline/               static visualisation files
type Server struct {
	cfg       *config.Config
	loc       *time.Location
	collector *extract.Collector
	mux       *http.ServeMux

	// now is replaceable in tests; open clocks resolve against it.
	now func() time.Time
}

// NewServer constructs a new Server. The collector's per-file cache is
// shared by every request.
func NewServer(cfg *config.Config, loc *time.Location, collector *extract.Collector) *Server {
	s := &Server{
		cfg:       cfg,
		loc:       loc,
		collector: collector,
		mux:       http.NewServeMux(),
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler is the routed mux, behind basic auth when credentials are set.
func (s *Server) Handler() http.Handler {
	if creds := s.cfg.BasicAuth; creds != nil && creds.Username != "" && creds.Password != "" {
		appLog.New("web").Info("basic auth required", "user", creds.Username)
		return requireAuth(creds, s.mux)
	}
	return s.mux
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	logger := appLog.New("web")
	go func() {
		logger.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		for _, cal := range s.cfg.Calendars {
			logger.Info("serving calendar", "url", "http://"+s.cfg.Listen+"/calendar/"+cal.ID+"/")
		}
		for _, k := range extract.Kinds {
			logger.Info("serving org feed", "url", "http://"+s.cfg.Listen+"/org/"+string(k)+"/")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requireAuth guards everything but /health with HTTP Basic Auth.
func requireAuth(creds *config.BasicAuthConfig, next http.Handler) http.Handler {
	want := []byte(creds.Username + "\x00" + creds.Password)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			user, pass, _ := r.BasicAuth()
			got := []byte(user + "\x00" + pass)
			if subtle.ConstantTimeCompare(got, want) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="orgcal", charset="UTF-8"`)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /calendar/{id}/{$}", s.handleCalendar)
	s.mux.HandleFunc("GET /org/{kind}/{$}", s.handleOrg)
	s.mux.HandleFunc("GET /timeline/timeline.json", s.handleTimelineJSON)
	s.mux.Handle("GET /timeline/", s.timelineFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "OK")
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.cfg.Calendar(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	files, err := ics.FindFiles(config.ExpandPath(cal.Directory))
	if err != nil {
		appLog.Error("calendar directory scan failed", err, "calendar", cal.ID)
		writeError(w, http.StatusInternalServerError, "failed to read calendar directory")
		return
	}
	data, err := ics.MergeFiles(cal.Name, cal.Description, files)
	if err != nil {
		appLog.Error("calendar merge failed", err, "calendar", cal.ID)
		writeError(w, http.StatusInternalServerError, "failed to merge calendar")
		return
	}
	writeCalendar(w, data)
}

func (s *Server) handleOrg(w http.ResponseWriter, r *http.Request) {
	kind, ok := extract.ParseKind(r.PathValue("kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	entries, err := s.entries()
	if err != nil {
		appLog.Error("org collection failed", err, "kind", kind)
		writeError(w, http.StatusInternalServerError, "failed to read org files")
		return
	}

	data := synth.FeedBytes(entries, kind, synth.FeedOptions{
		Now:      s.now().In(s.loc),
		Window:   time.Duration(s.cfg.FeedWindowDays) * 24 * time.Hour,
		Location: s.loc,
	})
	writeCalendar(w, data)
}

func (s *Server) handleTimelineJSON(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.entries()
	if err != nil {
		appLog.Error("timeline collection failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read org files")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := synth.EncodeTimeline(w, synth.Timeline(entries, s.now().In(s.loc))); err != nil {
		appLog.Error("failed to write timeline", err)
	}
}

// timelineFileServer serves the visualisation from timeline_dir, or 404s
// when none is configured.
func (s *Server) timelineFileServer() http.Handler {
	if s.cfg.TimelineDir == "" {
		return http.NotFoundHandler()
	}
	dir := config.ExpandPath(s.cfg.TimelineDir)
	return http.StripPrefix("/timeline/", http.FileServer(http.Dir(dir)))
}

func (s *Server) entries() ([]extract.Entry, error) {
	return s.collector.CollectDir(config.ExpandPath(s.cfg.OrgDirectory))
}

func writeCalendar(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", calendarContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		appLog.Error("json response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
