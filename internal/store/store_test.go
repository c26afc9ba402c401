package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"orgcal/internal/model"
	"orgcal/internal/source"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "calendar.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calendar.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestQuery_WindowAndCalendars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	events := []model.Event{
		{UID: "a", Calendar: "Work", Title: "Standup", Start: base, End: base.Add(15 * time.Minute)},
		{UID: "b", Calendar: "Private", Title: "Dentist", Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)},
		{UID: "c", Calendar: "Work", Title: "Old", Start: base.AddDate(0, -2, 0), End: base.AddDate(0, -2, 0).Add(time.Hour)},
		{UID: "d", Calendar: "Holidays", Title: "Trip", Start: base.AddDate(0, 0, -3), End: base.AddDate(0, 0, 3)},
	}
	byCalendar := make(map[string][]model.Event)
	for _, ev := range events {
		byCalendar[ev.Calendar] = append(byCalendar[ev.Calendar], ev)
	}
	for name, evs := range byCalendar {
		if err := s.Replace(ctx, name, evs); err != nil {
			t.Fatal(err)
		}
	}

	q := source.Query{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)}
	got, err := s.Query(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	var uids []string
	for _, ev := range got {
		uids = append(uids, ev.UID)
	}
	if diff := cmp.Diff([]string{"d", "a", "b"}, uids); diff != "" {
		t.Errorf("uids (-want +got):\n%s", diff)
	}
	if !got[1].Start.Equal(base) || !got[1].End.Equal(base.Add(15*time.Minute)) {
		t.Errorf("times not preserved: %+v", got[1])
	}

	q.Exclude = []string{"holidays"}
	got, err = s.Query(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("exclude: got %d events", len(got))
	}

	q.Exclude = nil
	q.Include = []string{"PRIVATE"}
	got, err = s.Query(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].UID != "b" {
		t.Errorf("include: got %+v", got)
	}
}

func TestReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	if err := s.Replace(ctx, "Home", []model.Event{{UID: "keep", Title: "Laundry", Start: base, End: base.Add(time.Hour)}}); err != nil {
		t.Fatal(err)
	}
	first := []model.Event{
		{UID: "x", Title: "One", Start: base, End: base.Add(time.Hour)},
		{UID: "y", Title: "Two", Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	}
	if err := s.Replace(ctx, "Work", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "Work", first[1:]); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, source.Query{Start: base.Add(-time.Hour), End: base.Add(3 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Event{
		{UID: "keep", Calendar: "Home", Title: "Laundry", Start: base.Local(), End: base.Add(time.Hour).Local()},
		{UID: "y", Calendar: "Work", Title: "Two", Start: base.Add(time.Hour).Local(), End: base.Add(2 * time.Hour).Local()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}
