package outline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the human timestamp format used inside outline documents,
// e.g. "2024-01-02 Tue 10:00".
const TimeLayout = "2006-01-02 Mon 15:04"

// Timestamp is a planning value such as "<2024-01-02 Tue 10:00>".
type Timestamp struct {
	// Raw is the value as written, brackets included.
	Raw    string
	Active bool

	// Time is only meaningful when Resolved is true. Values carrying a
	// repeater, warning delay or range do not denote one instant and stay
	// unresolved.
	Time     time.Time
	Resolved bool
}

var timestampRe = regexp.MustCompile(`^([<\[])(\d{4})-(\d{2})-(\d{2})(?:\s+[^\s\d>\]][^\s>\]]*)?(?:\s+(\d{1,2}):(\d{2}))?(.*)([>\]])$`)

// ParseTimestamp interprets raw in loc. It never fails: anything that cannot
// be pinned to a single instant comes back with Resolved == false.
func ParseTimestamp(raw string, loc *time.Location) Timestamp {
	raw = strings.TrimSpace(raw)
	ts := Timestamp{Raw: raw, Active: strings.HasPrefix(raw, "<")}

	m := timestampRe.FindStringSubmatch(raw)
	if m == nil {
		return ts
	}
	if (m[1] == "<") != (m[8] == ">") {
		return ts
	}
	if strings.TrimSpace(m[7]) != "" {
		return ts
	}

	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	hour, minute := 0, 0
	if m[5] != "" {
		hour, _ = strconv.Atoi(m[5])
		minute, _ = strconv.Atoi(m[6])
	}
	if hour > 23 || minute > 59 {
		return ts
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return ts
	}
	ts.Time = t
	ts.Resolved = true
	return ts
}

// NewTimestamp builds a resolved timestamp for t.
func NewTimestamp(t time.Time, active bool) Timestamp {
	open, closing := "[", "]"
	if active {
		open, closing = "<", ">"
	}
	return Timestamp{
		Raw:      open + FormatTime(t) + closing,
		Active:   active,
		Time:     t,
		Resolved: true,
	}
}

// ParseClockTime parses the inside of a clock bracket ("2024-01-02 Tue 10:00").
func ParseClockTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock time %q: %w", s, err)
	}
	return t, nil
}

// FormatTime renders t in the outline timestamp layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
