// Package extract pulls time-bearing entries (planning values and clock
// ranges) out of outline documents.
package extract

import (
	"time"

	"orgcal/internal/outline"
)

// Kind classifies an entry.
type Kind string

const (
	Deadline        Kind = "deadline"
	ActiveDeadline  Kind = "active-deadline"
	Scheduled       Kind = "scheduled"
	ActiveScheduled Kind = "active-scheduled"
	Closed          Kind = "closed"
	Clocks          Kind = "clocks"
)

// Kinds lists every kind in the order feeds are announced.
var Kinds = []Kind{ActiveDeadline, Deadline, ActiveScheduled, Scheduled, Closed, Clocks}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Entry is one time-bearing fact bound to the heading path it was found under.
type Entry struct {
	Kind  Kind
	Path  outline.Path
	Start time.Time

	// End is zero for planning entries.
	End time.Time

	// Open marks a clock that is still running; its end is "now".
	Open bool
}

// HasEnd reports whether the entry carries an end, including the open marker.
func (e Entry) HasEnd() bool {
	return e.Open || !e.End.IsZero()
}

// EndAt resolves the end, substituting now for a running clock.
func (e Entry) EndAt(now time.Time) time.Time {
	if e.Open {
		return now
	}
	return e.End
}
