package model

import (
	"strings"
	"time"
)

// Event is one calendar-store event instance as delivered by an event
// provider. Recurring events are already expanded; all instances of one
// series share UID and are told apart by Start.
type Event struct {
	// UID is the recurrence-aware shared identity.
	UID string

	Title string

	// Calendar is the human name of the calendar the event belongs to.
	Calendar string

	Start time.Time
	End   time.Time
}

// Tag turns the calendar name into an outline tag ("Work Stuff" -> "work-stuff").
func (e Event) Tag() string {
	return CalendarTag(e.Calendar)
}

// CalendarTag lower-cases name and replaces spaces with hyphens.
func CalendarTag(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
