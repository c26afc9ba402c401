// Package source adapts calendar stores into uniform event records.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

// MaxTitleLength is the longest title shown in the outline.
const MaxTitleLength = 50

// ErrSourceUnavailable wraps any failure to read an event source.
var ErrSourceUnavailable = errors.New("event source unavailable")

// Query bounds a provider request.
type Query struct {
	Start time.Time
	End   time.Time

	// Include, if non-empty, is the allow-list of calendar names.
	Include []string
	// Exclude is the deny-list of calendar names.
	Exclude []string
}

// Allows reports whether calendar passes the allow/deny lists. Matching is
// case-insensitive and exact.
func (q Query) Allows(calendar string) bool {
	if len(q.Include) > 0 && !containsFold(q.Include, calendar) {
		return false
	}
	return !containsFold(q.Exclude, calendar)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Provider yields expanded event instances for a query.
type Provider interface {
	Query(ctx context.Context, q Query) ([]model.Event, error)
}

// Adapter queries a set of providers and normalizes what they return.
type Adapter struct {
	Providers []Provider
	Include   []string
	Exclude   []string
}

// Events returns all allowed events between start and end with cleaned titles.
func (a *Adapter) Events(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	q := Query{Start: start, End: end, Include: a.Include, Exclude: a.Exclude}

	var out []model.Event
	for i, p := range a.Providers {
		events, err := p.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%w: provider %d: %w", ErrSourceUnavailable, i, err)
		}
		for _, ev := range events {
			if !q.Allows(ev.Calendar) {
				continue
			}
			ev.Title = FixTitle(ev.Title)
			out = append(out, ev)
		}
	}
	appLog.Debug("events queried", "providers", len(a.Providers), "events", len(out))
	return out, nil
}

// FixTitle strips square brackets and truncates to MaxTitleLength runes,
// ending truncated titles with "...".
func FixTitle(s string) string {
	s = strings.NewReplacer("[", "", "]", "").Replace(s)
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}
	r := []rune(s)
	return string(r[:MaxTitleLength-3]) + "..."
}
