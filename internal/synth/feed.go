package synth

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"orgcal/internal/extract"
)

// FeedProdID identifies feeds rendered from outline entries.
const FeedProdID = "-//orgcal//org feed v1.0//EN"

// DefaultSpan is the length given to entries that carry no end.
const DefaultSpan = 15 * time.Minute

// FeedOptions controls calendar-feed rendering.
type FeedOptions struct {
	// Now resolves open clocks and centers the window.
	Now time.Time
	// Window is the half-width around Now; entries starting outside it are
	// skipped. Zero means 30 days.
	Window time.Duration
	// Location anchors all-day dates. Nil means Now's location.
	Location *time.Location
}

// Feed builds a calendar with one VEVENT per entry of the given kind.
func Feed(entries []extract.Entry, kind extract.Kind, opts FeedOptions) *ical.Calendar {
	if opts.Window <= 0 {
		opts.Window = 30 * 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = opts.Now.Location()
	}
	minTime := opts.Now.Add(-opts.Window)
	maxTime := opts.Now.Add(opts.Window)

	cal := ical.NewCalendar()
	cal.SetProductId(FeedProdID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName(string(kind))
	cal.SetXWRCalDesc(string(kind) + " imported from org-mode")

	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		if e.Start.Before(minTime) || e.Start.After(maxTime) {
			continue
		}
		addEvent(cal, e, opts)
	}
	return cal
}

// FeedBytes renders the feed and serializes it.
func FeedBytes(entries []extract.Entry, kind extract.Kind, opts FeedOptions) []byte {
	return []byte(Feed(entries, kind, opts).Serialize())
}

func addEvent(cal *ical.Calendar, e extract.Entry, opts FeedOptions) {
	headings := Headings(e.Path)
	ev := cal.AddEvent(EventUID(e))
	ev.SetSummary(headings[len(headings)-1])
	ev.SetDescription(Describe(headings))
	ev.SetDtStampTime(e.Start)

	switch {
	case e.HasEnd():
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.EndAt(opts.Now))
	case allDay(e, opts.Location):
		start := e.Start.In(opts.Location)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
	default:
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.Start.Add(DefaultSpan))
	}
}

// allDay reports whether a deadline without end sits exactly at midnight.
func allDay(e extract.Entry, loc *time.Location) bool {
	if e.Kind != extract.Deadline && e.Kind != extract.ActiveDeadline {
		return false
	}
	t := e.Start.In(loc)
	return t.Hour() == 0 && t.Minute() == 0
}

// Headings trims the path and drops empty headings, falling back to "dummy".
func Headings(path []string) []string {
	var out []string
	for _, h := range path {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return []string{"dummy"}
	}
	return out
}

// Describe renders headings as a nested outline, one star per depth.
func Describe(headings []string) string {
	lines := make([]string, len(headings))
	for i, h := range headings {
		lines[i] = strings.Repeat("*", i+1) + " " + h
	}
	return strings.Join(lines, "\n")
}

// EventUID derives a stable UID so repeated renders of the same entry keep
// their identity in subscribed clients.
func EventUID(e extract.Entry) string {
	name := fmt.Sprintf("%s|%s|%d", e.Kind, strings.Join(e.Path, "\x1f"), e.Start.Unix())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@orgcal"
}
