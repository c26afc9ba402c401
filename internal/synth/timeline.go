package synth

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"time"

	"orgcal/internal/extract"
)

// TimelineMinSpan is the length given to timeline items without an end.
const TimelineMinSpan = 60 * time.Second

// TimelineItem is one bar on the timeline.
type TimelineItem struct {
	Category string `json:"category"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Entry    string `json:"entry"`
}

// TimelineDay holds the items starting on one date. It encodes as the pair
// [day, items].
type TimelineDay struct {
	Day   string
	Items []TimelineItem
}

// MarshalJSON implements json.Marshaler.
func (d TimelineDay) MarshalJSON() ([]byte, error) {
	items := d.Items
	if items == nil {
		items = []TimelineItem{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{d.Day, items}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Timeline buckets clock and scheduled entries by start date, in start order.
func Timeline(entries []extract.Entry, now time.Time) []TimelineDay {
	var picked []extract.Entry
	for _, e := range entries {
		if e.Kind == extract.Clocks || e.Kind == extract.Scheduled {
			picked = append(picked, e)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Start.Before(picked[j].Start)
	})

	days := []TimelineDay{}
	for _, e := range picked {
		end := e.EndAt(now)
		if !e.HasEnd() {
			end = e.Start.Add(TimelineMinSpan)
		}
		day := e.Start.Format(time.DateOnly)
		item := TimelineItem{
			Start: e.Start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			Entry: e.Path.String(),
		}
		if n := len(days); n > 0 && days[n-1].Day == day {
			days[n-1].Items = append(days[n-1].Items, item)
			continue
		}
		days = append(days, TimelineDay{Day: day, Items: []TimelineItem{item}})
	}
	return days
}

// EncodeTimeline writes days as JSON without HTML escaping, so entry paths
// keep their literal "->".
func EncodeTimeline(w io.Writer, days []TimelineDay) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(days)
}
