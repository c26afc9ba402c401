package extract

import (
	"regexp"
	"time"

	appLog "orgcal/internal/log"
	"orgcal/internal/outline"
)

var (
	clockRe     = regexp.MustCompile(`^CLOCK: \[([^\]]*)\]--\[([^\]]*)\]`)
	openClockRe = regexp.MustCompile(`^CLOCK: \[([^\]]*)\]`)
)

// FromDocument walks doc and returns its entries in document order. Values
// that cannot be resolved to an instant are skipped, never reported.
func FromDocument(doc *outline.Document, loc *time.Location) []Entry {
	var out []Entry
	for n, path := range outline.Walk(doc) {
		switch n := n.(type) {
		case *outline.Schedule:
			out = append(out, scheduleEntries(n, path.Clone())...)
		case *outline.Drawer:
			out = append(out, clockEntries(n, path.Clone(), loc)...)
		case *outline.Heading, outline.Text:
		}
	}
	return out
}

// scheduleEntries emits closed first, then deadline and scheduled. The
// active-* variants are only produced when the node is not closed.
func scheduleEntries(s *outline.Schedule, path outline.Path) []Entry {
	var out []Entry

	closed, isClosed := resolved(s.Closed)
	if isClosed {
		out = append(out, Entry{Kind: Closed, Path: path, Start: closed})
	}

	fields := []struct {
		ts     *outline.Timestamp
		kind   Kind
		active Kind
	}{
		{s.Deadline, Deadline, ActiveDeadline},
		{s.Scheduled, Scheduled, ActiveScheduled},
	}
	for _, f := range fields {
		t, ok := resolved(f.ts)
		if !ok {
			continue
		}
		out = append(out, Entry{Kind: f.kind, Path: path, Start: t})
		if !isClosed {
			out = append(out, Entry{Kind: f.active, Path: path, Start: t})
		}
	}
	return out
}

func resolved(ts *outline.Timestamp) (time.Time, bool) {
	if ts == nil {
		return time.Time{}, false
	}
	if !ts.Resolved {
		appLog.Debug("skipping unresolved timestamp", "raw", ts.Raw)
		return time.Time{}, false
	}
	return ts.Time, true
}

func clockEntries(d *outline.Drawer, path outline.Path, loc *time.Location) []Entry {
	var out []Entry
	for _, line := range d.Lines {
		if m := clockRe.FindStringSubmatch(line); m != nil {
			start, err := outline.ParseClockTime(m[1], loc)
			if err != nil {
				appLog.Debug("skipping clock line", "line", line, "err", err)
				continue
			}
			end, err := outline.ParseClockTime(m[2], loc)
			if err != nil {
				appLog.Debug("skipping clock line", "line", line, "err", err)
				continue
			}
			out = append(out, Entry{Kind: Clocks, Path: path, Start: start, End: end})
			continue
		}

		m := openClockRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, err := outline.ParseClockTime(m[1], loc)
		if err != nil {
			appLog.Debug("skipping clock line", "line", line, "err", err)
			continue
		}
		out = append(out, Entry{Kind: Clocks, Path: path, Start: start, Open: true})
	}
	return out
}
