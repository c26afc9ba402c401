// Package synth renders extracted entries and calendar segments into the
// two output formats: an outline document and an iCalendar feed. It also
// builds the day-bucketed timeline consumed by the web visualisation.
package synth

import (
	"io"
	"time"

	"orgcal/internal/group"
	"orgcal/internal/outline"
	"orgcal/internal/segment"
)

// DrawerName is the drawer holding one timestamp line per group member.
const DrawerName = "SCHEDULE"

// tagGap keeps tags visually apart from long titles.
const tagGap = "            "

// OutlineOptions controls outline rendering.
type OutlineOptions struct {
	// IncludeEndTime renders "<start>--<end>" instead of "<start>".
	IncludeEndTime bool
}

// Outline builds a document with one level-1 heading per group, each
// followed by a blank line.
func Outline(groups []group.Group[segment.Segment], opts OutlineOptions) *outline.Document {
	doc := &outline.Document{}
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		doc.Children = append(doc.Children, groupHeading(g, opts), outline.Text{})
	}
	return doc
}

// WriteOutline renders groups and writes the resulting document to w.
func WriteOutline(w io.Writer, groups []group.Group[segment.Segment], opts OutlineOptions) error {
	_, err := Outline(groups, opts).WriteTo(w)
	return err
}

func groupHeading(g group.Group[segment.Segment], opts OutlineOptions) *outline.Heading {
	first := g.First()

	title := first.Event.Title
	if first.Duration != "" {
		title = "[" + first.Duration + "] " + title
	}
	if first.Part != "" {
		title += " [" + first.Part + "]"
	}

	drawer := &outline.Drawer{Name: DrawerName}
	for _, s := range g.Members {
		drawer.Lines = append(drawer.Lines, scheduleLine(s, opts))
	}

	h := &outline.Heading{
		Level: 1,
		Title: title + tagGap,
		Tags:  []string{first.Event.Tag()},
	}
	return h.Append(drawer)
}

func scheduleLine(s segment.Segment, opts OutlineOptions) string {
	line := outline.NewTimestamp(s.Start, true).Raw
	if !opts.IncludeEndTime {
		return line
	}
	end := s.End
	if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
		end = end.Add(-time.Second)
	}
	return line + "--" + outline.NewTimestamp(end, true).Raw
}
