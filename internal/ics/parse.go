package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "orgcal/internal/log"
)

// ParsedEvent is one VEVENT of a subscribed feed before recurrence expansion.
type ParsedEvent struct {
	Calendar string
	UID      string
	Summary  string

	Start, End time.Time
	AllDay     bool

	RRule      string
	Exceptions []time.Time // EXDATE values

	// RecurrenceID is set when this VEVENT replaces a single instance of
	// the series sharing its UID.
	RecurrenceID *time.Time
}

// ParseICS reads the VEVENTs of a feed belonging to calendar. Zone handling
// is left to golang-ical; recurrence data is recorded for ExpandOccurrences.
// Unreadable VEVENTs are logged and dropped.
func ParseICS(calendar string, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "calendar", calendar)
		return nil, err
	}

	var events []ParsedEvent
	for _, ve := range cal.Events() {
		ev, err := readVEvent(ve)
		if err != nil {
			appLog.Error("ics vevent skipped", err, "calendar", calendar)
			continue
		}
		ev.Calendar = calendar
		events = append(events, ev)
	}
	appLog.Debug("ics parse completed", "calendar", calendar, "event_count", len(events))
	return events, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

func readVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	ev := ParsedEvent{
		UID:     propValue(ve, ical.ComponentPropertyUniqueId),
		Summary: propValue(ve, ical.ComponentPropertySummary),
		RRule:   propValue(ve, ical.ComponentPropertyRrule),
	}
	if ev.UID == "" {
		return ev, errors.New("VEVENT without UID")
	}

	var err error
	if ev.Start, err = ve.GetStartAt(); err != nil {
		if ev.Start, err = ve.GetAllDayStartAt(); err != nil {
			return ev, err
		}
	}
	if ev.End, err = ve.GetEndAt(); err != nil {
		ev.End, _ = ve.GetAllDayEndAt()
	}
	ev.AllDay = isDateValue(ve.GetProperty(ical.ComponentPropertyDtStart))

	if ev.End.IsZero() {
		ev.End = ev.Start
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		}
	}

	loc := ev.Start.Location()
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for v := range strings.SplitSeq(p.Value, ",") {
			if t, err := parseICSTime(v, loc); err == nil {
				ev.Exceptions = append(ev.Exceptions, t)
			}
		}
	}
	if rid := propValue(ve, ical.ComponentProperty("RECURRENCE-ID")); rid != "" {
		if t, err := parseICSTime(rid, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

// isDateValue reports whether a DTSTART carries a bare date.
func isDateValue(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	for _, v := range p.ICalParameters["VALUE"] {
		if strings.EqualFold(v, "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime accepts the DATE, local DATE-TIME and UTC forms used by
// EXDATE and RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if loc == nil {
		loc = time.Local
	}
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
