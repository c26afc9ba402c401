package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"orgcal/internal/extract"
	"orgcal/internal/outline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, uid := range []string{"a", "b"} {
		path := filepath.Join(dir, uid+".ics")
		body := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:x\nBEGIN:VEVENT\nUID:" + uid + "\nEND:VEVENT\nEND:VCALENDAR\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, path)
	}
	outPath := filepath.Join(dir, "merged.ics")

	args := append([]string{"merge", "-n", "Team", "-d", "All team calendars", "-o", outPath}, files...)
	if _, err := execute(t, args...); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if n := strings.Count(text, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
	if n := strings.Count(text, "PRODID:"); n != 1 {
		t.Errorf("prodid lines = %d, want 1", n)
	}
	if !strings.Contains(text, "X-WR-CALNAME;VALUE=TEXT:Team") {
		t.Errorf("missing calendar name:\n%s", text)
	}
}

func TestFeedAndTimelineCommands(t *testing.T) {
	dir := t.TempDir()
	orgDir := filepath.Join(dir, "org")
	if err := os.MkdirAll(orgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now().In(loc).Add(-2 * time.Hour).Truncate(time.Minute)
	org := "* Project\n** Write docs\n:LOGBOOK:\n" +
		"CLOCK: [" + outline.FormatTime(start) + "]--[" + outline.FormatTime(start.Add(time.Hour)) + "] =>  1:00\n" +
		":END:\n"
	if err := os.WriteFile(filepath.Join(orgDir, "work.org"), []byte(org), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := writeConfig(t, dir, "timezone: Europe/Berlin\norg_directory: "+orgDir+"\n")

	out, err := execute(t, "--config", cfgPath, "feed", "clocks")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "SUMMARY:Write docs") {
		t.Errorf("feed missing clock entry:\n%s", out)
	}

	out, err = execute(t, "--config", cfgPath, "timeline")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"entry":"Project->Write docs"`) {
		t.Errorf("timeline missing entry:\n%s", out)
	}

	if _, err := execute(t, "--config", cfgPath, "feed", "birthdays"); err == nil {
		t.Error("expected unknown kind error")
	}
}

func TestImportOnceWithSQLiteSource(t *testing.T) {
	dir := t.TempDir()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	day := time.Now().In(loc).AddDate(0, 0, 1)
	dtstart := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, loc).UTC().Format("20060102T150405Z")
	dtend := time.Date(day.Year(), day.Month(), day.Day(), 10, 30, 0, 0, loc).UTC().Format("20060102T150405Z")

	icsPath := filepath.Join(dir, "Work Stuff.ics")
	feed := strings.Join([]string{
		"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN",
		"BEGIN:VEVENT", "UID:review", "DTSTAMP:20240101T000000Z", "SUMMARY:[Team] Review",
		"DTSTART:" + dtstart, "DTEND:" + dtend,
		"END:VEVENT", "END:VCALENDAR",
	}, "\r\n") + "\r\n"
	if err := os.WriteFile(icsPath, []byte(feed), 0o644); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "calendar.db")
	outPath := filepath.Join(dir, "calendar.org")
	cfgPath := writeConfig(t, dir, strings.Join([]string{
		"timezone: Europe/Berlin",
		"import:",
		"  output_file: " + outPath,
		"  num_days: 7",
		"  include_duration: true",
		"sources:",
		"  - kind: sqlite",
		"    path: " + dbPath,
	}, "\n")+"\n")

	if _, err := execute(t, "--config", cfgPath, "snapshot", "--db", dbPath, icsPath); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", cfgPath, "import", "--once"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "* [1/2h] Team Review") || !strings.Contains(string(data), ":work-stuff:") {
		t.Errorf("unexpected outline:\n%s", data)
	}
}

func TestDropOnHangup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.org")
	if err := os.WriteFile(path, []byte("* A\nDEADLINE: <2024-01-01 Mon>\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := extract.NewCollector(time.UTC)
	if _, err := c.CollectFile(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		dropOnHangup(ctx, sig, c)
		close(done)
	}()
	// The second send is only received once the first drop has finished.
	sig <- os.Interrupt
	sig <- os.Interrupt
	cancel()
	<-done

	if n := c.Invalidate(); n != 0 {
		t.Errorf("cache still holds %d files after hangup", n)
	}
}
