// Package segment cuts calendar events into day-bounded pieces.
package segment

import (
	"fmt"
	"time"

	"orgcal/internal/group"
	"orgcal/internal/model"
)

// MinSpan is the shortest trailing piece worth keeping. Events ending just
// after midnight would otherwise leave a zero-length sliver on the last day.
const MinSpan = time.Minute

// Segment is the part of an event that falls on one calendar date.
type Segment struct {
	Event model.Event

	Start time.Time
	End   time.Time

	// Duration is a label like "1/2h", set only when requested.
	Duration string
	// Part is "i/n" when the event spans more than one segment.
	Part string
}

// Span is the segment length.
func (s Segment) Span() time.Duration {
	return s.End.Sub(s.Start)
}

// GroupKey collapses visually identical instances of a recurring event.
func (s Segment) GroupKey() group.Key {
	return group.Key{
		Identity: s.Event.UID,
		Title:    s.Event.Title,
		Duration: s.Duration,
		Part:     s.Part,
		Seconds:  int64(s.Span() / time.Second),
	}
}

// Split cuts ev at every midnight in loc. Every segment but the last ends at
// 23:59:59 of its date; the next starts at 00:00:00 of the following date.
func Split(ev model.Event, loc *time.Location, withDuration bool) []Segment {
	start := ev.Start.In(loc)
	end := ev.End.In(loc)
	if end.Before(start) {
		return nil
	}

	var segs []Segment
	cur := start
	for !sameDate(cur, end) {
		y, m, d := cur.Date()
		segs = append(segs, Segment{
			Event: ev,
			Start: cur,
			End:   time.Date(y, m, d, 23, 59, 59, 0, loc),
		})
		cur = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	if end.Sub(cur) >= MinSpan {
		segs = append(segs, Segment{Event: ev, Start: cur, End: end})
	}

	n := len(segs)
	for i := range segs {
		if withDuration {
			segs[i].Duration = DurationLabel(segs[i].Span())
		}
		if n > 1 {
			segs[i].Part = fmt.Sprintf("%d/%d", i+1, n)
		}
	}
	return segs
}

// SplitAll splits every event, keeping event order.
func SplitAll(events []model.Event, loc *time.Location, withDuration bool) []Segment {
	var out []Segment
	for _, ev := range events {
		out = append(out, Split(ev, loc, withDuration)...)
	}
	return out
}

// DurationLabel renders d the way it is shown in front of a title.
func DurationLabel(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d >= 24*time.Hour-time.Second {
		return "day"
	}
	switch d {
	case 15 * time.Minute:
		return "1/4h"
	case 30 * time.Minute:
		return "1/2h"
	case 45 * time.Minute:
		return "3/4h"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
