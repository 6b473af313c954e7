package schedule

import (
	"fmt"
	"sort"
	"time"

	"schoolcal/internal/model"
)

// Snapshot is the validated in-memory configuration a resolution run
// consumes. It is treated as immutable; the engine never writes to it.
type Snapshot struct {
	Periods   []model.Period
	Subjects  []model.Subject
	Sources   []model.TimetableSource
	Holidays  []model.HolidayRule
	Overrides map[time.Time]model.Override
}

// Engine composes the registries, holiday calendar, override table and
// source set into the resolution algorithm. Resolution is a pure function
// of (snapshot, today): engines may run concurrently over independent
// snapshots without coordination.
type Engine struct {
	snap      Snapshot
	periods   *PeriodRegistry
	subjects  *SubjectRegistry
	sources   *SourceSet
	holidays  *HolidayCalendar
	overrides *OverrideTable
	uidDomain string
}

// NewEngine builds an engine over the given snapshot. uidDomain becomes
// the host part of every generated event identifier.
func NewEngine(snap Snapshot, uidDomain string) *Engine {
	if uidDomain == "" {
		uidDomain = "timetable.local"
	}
	return &Engine{
		snap:      snap,
		periods:   NewPeriodRegistry(snap.Periods),
		subjects:  NewSubjectRegistry(snap.Subjects),
		sources:   NewSourceSet(snap.Sources),
		holidays:  NewHolidayCalendar(snap.Holidays),
		overrides: NewOverrideTable(snap.Overrides),
		uidDomain: uidDomain,
	}
}

// Resolve computes every event instance for the given reference date,
// sorted by (date, period start). Any reference to an unknown period or
// subject, malformed range or ambiguous override aborts the whole run:
// correctness of a school schedule is preferred over partial output.
func (e *Engine) Resolve(today time.Time) ([]model.EventInstance, error) {
	today = model.DateOnly(today)

	if err := e.sources.Validate(); err != nil {
		return nil, err
	}
	if err := e.overrides.Validate(); err != nil {
		return nil, err
	}
	if err := e.validateReferences(); err != nil {
		return nil, err
	}

	dates, authority, err := e.sources.Candidates(today)
	if err != nil {
		return nil, err
	}

	var events []model.EventInstance
	for _, date := range dates {
		srcIdx := authority[date.Format(dateKeyLayout)]

		// Overrides take absolute precedence: they force their content
		// into existence even on holidays and fully suppress the base
		// schedule for their date.
		if o, ok := e.overrides.Lookup(date); ok {
			evs, oerr := e.resolveOverride(date, srcIdx, o)
			if oerr != nil {
				return nil, oerr
			}
			events = append(events, evs...)
			continue
		}

		if e.holidays.IsHoliday(date) {
			continue
		}

		for _, entry := range e.sources.PatternFor(srcIdx, model.ISOWeekday(date)) {
			ev, eerr := e.emit(date, entry.PeriodID, entry.SubjectID)
			if eerr != nil {
				return nil, eerr
			}
			events = append(events, ev)
		}
	}

	// Dates already ascend; order within a day by period start. Ties keep
	// pattern declaration order.
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Start.Before(events[b].Start)
	})

	return events, nil
}

// resolveOverride materializes an override's content under its actual
// calendar date. use_weekday substitutes the pattern the authoritative
// source associates with that weekday; a patch list is emitted verbatim.
func (e *Engine) resolveOverride(date time.Time, srcIdx int, o model.Override) ([]model.EventInstance, error) {
	var out []model.EventInstance

	if o.UseWeekday != 0 {
		for _, entry := range e.sources.PatternFor(srcIdx, o.UseWeekday) {
			ev, err := e.emit(date, entry.PeriodID, entry.SubjectID)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	}

	// Patch list (possibly empty, i.e. a cleared day). Periods not listed
	// are absent, never inherited from the base schedule.
	for _, patch := range o.Patches {
		ev, err := e.emit(date, patch.PeriodID, patch.SubjectID)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// emit resolves one (date, period, subject) triple into an event instance
// with its deterministic identifier.
func (e *Engine) emit(date time.Time, periodID, subjectID string) (model.EventInstance, error) {
	dayKey := date.Format(dateKeyLayout)

	period, err := e.periods.Resolve(periodID)
	if err != nil {
		return model.EventInstance{}, fmt.Errorf("%w (on %s)", err, dayKey)
	}
	subject, err := e.subjects.Resolve(subjectID)
	if err != nil {
		return model.EventInstance{}, fmt.Errorf("%w (on %s)", err, dayKey)
	}

	return model.EventInstance{
		UID:       fmt.Sprintf("%s-%s-%s@%s", dayKey, periodID, subjectID, e.uidDomain),
		Date:      date,
		PeriodID:  periodID,
		SubjectID: subjectID,
		Summary:   subject.Label,
		Start:     period.Start.At(date),
		End:       period.End.At(date),
	}, nil
}

// validateReferences checks every period/subject reference in patterns
// and override patches up front, so a broken entry fails the run even
// when its weekday never materializes in the current window.
func (e *Engine) validateReferences() error {
	for _, s := range e.snap.Sources {
		for _, entry := range s.Entries {
			if _, err := e.periods.Resolve(entry.PeriodID); err != nil {
				return fmt.Errorf("%w (source %q, weekday %d)", err, s.Name, entry.Weekday)
			}
			if _, err := e.subjects.Resolve(entry.SubjectID); err != nil {
				return fmt.Errorf("%w (source %q, weekday %d)", err, s.Name, entry.Weekday)
			}
		}
	}

	for date, o := range e.snap.Overrides {
		dayKey := model.DateOnly(date).Format(dateKeyLayout)
		for _, patch := range o.Patches {
			if _, err := e.periods.Resolve(patch.PeriodID); err != nil {
				return fmt.Errorf("%w (override for %s)", err, dayKey)
			}
			if _, err := e.subjects.Resolve(patch.SubjectID); err != nil {
				return fmt.Errorf("%w (override for %s)", err, dayKey)
			}
		}
	}

	return nil
}
