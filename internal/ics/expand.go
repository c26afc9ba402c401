package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

const defaultLimit = 5000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone instances are converted to. All-day events keep
	// their calendar date and are anchored at midnight in Location.
	Location *time.Location

	// RangeStart and RangeEnd bound the returned instances, inclusive.
	RangeStart, RangeEnd time.Time

	// Limit caps the instances of one series; zero means 5000.
	Limit int
}

// series is every VEVENT sharing a UID: the masters plus the overrides
// that replace single instances.
type series struct {
	masters   []ParsedEvent
	overrides []ParsedEvent
}

func (s series) override(start time.Time) (ParsedEvent, bool) {
	for _, o := range s.overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

// ExpandOccurrences turns parsed VEVENTs into event instances inside the
// configured range. Single events pass through, RRULEs expand with their
// EXDATEs removed, and RECURRENCE-ID overrides replace the instance they
// name. Instances keep the series UID; output follows first-seen UID order.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: range ends before it starts")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}

	var order []string
	byUID := make(map[string]*series)
	for _, ev := range events {
		s, ok := byUID[ev.UID]
		if !ok {
			s = &series{}
			byUID[ev.UID] = s
			order = append(order, ev.UID)
		}
		if ev.RecurrenceID != nil {
			s.overrides = append(s.overrides, ev)
		} else {
			s.masters = append(s.masters, ev)
		}
	}

	var out []model.Event
	for _, uid := range order {
		s := byUID[uid]
		for _, m := range s.masters {
			if m.RRule == "" {
				if o, ok := s.override(m.Start); ok {
					m = o
				}
				if inRange(m.Start, m.End, cfg) {
					out = append(out, toEvent(m, cfg.Location))
				}
				continue
			}
			out = append(out, expandRule(m, s, cfg)...)
		}
	}
	return out, nil
}

func expandRule(m ParsedEvent, s *series, cfg ExpandConfig) []model.Event {
	rule, err := rrule.StrToRRule(m.RRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", m.UID, "rrule", m.RRule)
		return nil
	}
	rule.DTStart(m.Start)

	zone := m.Start.Location()
	set := &rrule.Set{}
	set.RRule(rule)
	for _, ex := range m.Exceptions {
		set.ExDate(ex.In(zone))
	}

	// Instances that began before the range but still run inside it count.
	length := m.End.Sub(m.Start)
	starts := set.Between(cfg.RangeStart.Add(-length).In(zone), cfg.RangeEnd.In(zone), true)
	if len(starts) > cfg.Limit {
		appLog.Warn("expand: series truncated", "uid", m.UID, "limit", cfg.Limit, "instances", len(starts))
		starts = starts[:cfg.Limit]
	}

	out := make([]model.Event, 0, len(starts))
	for _, st := range starts {
		inst, ok := s.override(st)
		if !ok {
			inst = m
			inst.Start, inst.End = st, st.Add(length)
		}
		out = append(out, toEvent(inst, cfg.Location))
	}
	return out
}

func toEvent(ev ParsedEvent, loc *time.Location) model.Event {
	start, end := ev.Start.In(loc), ev.End.In(loc)
	if ev.AllDay {
		start, end = atMidnight(ev.Start, loc), atMidnight(ev.End, loc)
	}
	return model.Event{
		UID:      ev.UID,
		Title:    ev.Summary,
		Calendar: ev.Calendar,
		Start:    start,
		End:      end,
	}
}

// atMidnight keeps the calendar date of t and anchors it at midnight in loc.
func atMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func inRange(start, end time.Time, cfg ExpandConfig) bool {
	return !end.Before(cfg.RangeStart) && !cfg.RangeEnd.Before(start)
}
