package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"schoolcal/internal/model"
)

// SourceSet is the ordered collection of timetable sources. Declaration
// order is load-bearing: the first source whose range and visibility
// window admit a date is authoritative for it.
type SourceSet struct {
	sources []model.TimetableSource
}

// NewSourceSet builds a set preserving declaration order.
func NewSourceSet(sources []model.TimetableSource) *SourceSet {
	return &SourceSet{sources: sources}
}

// Validate checks structural invariants of every source: non-negative
// visibility counts, ordered date ranges and in-range pattern weekdays.
func (ss *SourceSet) Validate() error {
	for _, s := range ss.sources {
		if s.VisibleWeeks < 0 || s.VisibleDays < 0 {
			return fmt.Errorf("%w: source %q: visible_weeks=%d visible_days=%d",
				ErrInvalidVisibilityPolicy, s.Name, s.VisibleWeeks, s.VisibleDays)
		}
		if model.DateOnly(s.End).Before(model.DateOnly(s.Start)) {
			return fmt.Errorf("%w: source %q: start %s is after end %s",
				ErrInvalidDate, s.Name, s.Start.Format(dateKeyLayout), s.End.Format(dateKeyLayout))
		}
		for _, e := range s.Entries {
			if e.Weekday < 1 || e.Weekday > 7 {
				return fmt.Errorf("%w: source %q: pattern weekday %d out of range 1..7",
					ErrInvalidDate, s.Name, e.Weekday)
			}
		}
	}
	return nil
}

// Source returns the source at the given declaration index.
func (ss *SourceSet) Source(i int) model.TimetableSource {
	return ss.sources[i]
}

// PatternFor returns the entries of source i whose weekday matches,
// in declaration order.
func (ss *SourceSet) PatternFor(i int, weekday int) []model.PatternEntry {
	var out []model.PatternEntry
	for _, e := range ss.sources[i].Entries {
		if e.Weekday == weekday {
			out = append(out, e)
		}
	}
	return out
}

// Candidates computes the union of all sources' candidate dates for the
// given reference date, ascending, together with the authoritative source
// index per date (first-declared wins).
func (ss *SourceSet) Candidates(today time.Time) ([]time.Time, map[string]int, error) {
	today = model.DateOnly(today)

	authority := make(map[string]int)
	var union []time.Time

	for i, s := range ss.sources {
		dates, err := candidateDates(s, today)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range dates {
			key := d.Format(dateKeyLayout)
			if _, claimed := authority[key]; claimed {
				continue
			}
			authority[key] = i
			union = append(union, d)
		}
	}

	sort.Slice(union, func(a, b int) bool { return union[a].Before(union[b]) })
	return union, authority, nil
}

// candidateDates enumerates every date of the source's range that its
// visibility policy currently admits.
func candidateDates(s model.TimetableSource, today time.Time) ([]time.Time, error) {
	start, end, ok := effectiveWindow(s, today)
	if !ok {
		return nil, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", s.Name, err)
	}
	return r.All(), nil
}

// effectiveWindow clamps the source's date range to its visibility
// window. The window is the union of two independent predicates:
//
//   - visible_weeks: [Monday of the current week, Monday + weeks*7 - 1]
//   - visible_days:  [today, today + days - 1]
//
// Either suffices; both windows contain overlapping days whenever both
// are enabled, so the union stays contiguous. Both disabled means the
// source contributes no dates at all.
func effectiveWindow(s model.TimetableSource, today time.Time) (time.Time, time.Time, bool) {
	weeksEnabled := s.VisibleWeeks > 0
	daysEnabled := s.VisibleDays > 0
	if !weeksEnabled && !daysEnabled {
		return time.Time{}, time.Time{}, false
	}

	weekMonday := today.AddDate(0, 0, -(model.ISOWeekday(today) - 1))

	var visEnd time.Time
	if weeksEnabled {
		visEnd = weekMonday.AddDate(0, 0, s.VisibleWeeks*7-1)
	}
	if daysEnabled {
		daysEnd := today.AddDate(0, 0, s.VisibleDays-1)
		if daysEnd.After(visEnd) {
			visEnd = daysEnd
		}
	}

	visStart := today
	if weeksEnabled {
		visStart = weekMonday
	}

	start := model.DateOnly(s.Start)
	if visStart.After(start) {
		start = visStart
	}
	end := model.DateOnly(s.End)
	if visEnd.Before(end) {
		end = visEnd
	}

	if s.IgnorePastDays && today.After(start) {
		start = today
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
