package model

import (
	"fmt"
	"time"
)

// ClockTime is a time of day without a date, e.g. the start of a class
// period. All clock times are interpreted in the configured display zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a "HH:MM" string.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Before reports whether c is strictly earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool {
	return c.Hour*60+c.Minute < o.Hour*60+o.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// At combines the clock time with the given calendar day.
func (c ClockTime) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// Period is a named time-of-day interval a class can occupy.
// Invariant: Start < End, enforced at load time.
type Period struct {
	ID    string
	Start ClockTime
	End   ClockTime
}

// Subject maps a schedule identifier to a human-readable display label.
type Subject struct {
	ID    string
	Label string
}

// PatternEntry is one cell of a weekly pattern: on this ISO weekday,
// this period holds this subject.
type PatternEntry struct {
	Weekday   int // ISO weekday, 1=Monday .. 7=Sunday
	PeriodID  string
	SubjectID string
}

// TimetableSource is a weekly pattern bound to an inclusive date range and
// a visibility policy. Sources are consulted in declaration order; the
// first source admitting a date is authoritative for it.
type TimetableSource struct {
	// Name identifies the source in logs and error messages
	// (typically the timetable file name).
	Name string

	Entries []PatternEntry

	// Start / End bound the term, inclusive, normalized to midnight.
	Start time.Time
	End   time.Time

	// VisibleWeeks counts rolling weeks from Monday of the current week;
	// VisibleDays counts rolling days from today. A date is visible if
	// either window admits it. Both zero disables the source.
	VisibleWeeks int
	VisibleDays  int

	// IgnorePastDays additionally drops candidate dates before today.
	IgnorePastDays bool
}

// HolidayRule suspends instruction on a single date or a date range,
// optionally restricted to certain weekdays.
type HolidayRule struct {
	// Date, when non-nil, makes this a single-date rule and Start/End are
	// ignored.
	Date *time.Time

	Start time.Time
	End   time.Time

	// Weekdays is an optional ISO-weekday filter. Empty means the rule
	// applies on any weekday.
	Weekdays []int
}

// PatchEntry is one (period, subject) pair of a per-period override.
type PatchEntry struct {
	PeriodID  string
	SubjectID string
}

// Override replaces the resolved schedule for a single date. Exactly one
// of the two shapes may be set: UseWeekday substitutes a full weekday
// pattern, Patches replaces the day with an explicit period list.
type Override struct {
	// UseWeekday is an ISO weekday 1..7 when set, 0 when unset.
	UseWeekday int

	// Patches lists the (period, subject) pairs the date should carry.
	// HasPatches distinguishes an explicit empty list (a cleared day)
	// from the shape being absent.
	Patches    []PatchEntry
	HasPatches bool
}

// EventInstance is one concrete, dated occurrence of a subject in a
// period: the engine's output unit. Instances are pure values created
// fresh on each resolution run.
type EventInstance struct {
	// UID is the deterministic identifier derived from
	// (date, period ID, subject ID). Regenerating the feed from unchanged
	// configuration reproduces it byte for byte.
	UID string

	Date      time.Time
	PeriodID  string
	SubjectID string

	// Summary is the resolved subject display label.
	Summary string

	// Start / End are concrete timestamps in the display zone.
	Start time.Time
	End   time.Time
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ISOWeekday returns the ISO weekday of t (1=Monday .. 7=Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
