package schedule

import (
	"fmt"
	"sort"
	"time"

	"schoolcal/internal/model"
)

const dateKeyLayout = "2006-01-02"

// OverrideTable maps calendar dates to per-date schedule replacements.
// An override takes precedence over both the base timetable and the
// holiday calendar for its date.
type OverrideTable struct {
	overrides map[string]model.Override
}

// NewOverrideTable builds a table from date-keyed overrides. Dates are
// normalized to midnight before keying.
func NewOverrideTable(overrides map[time.Time]model.Override) *OverrideTable {
	m := make(map[string]model.Override, len(overrides))
	for date, o := range overrides {
		m[model.DateOnly(date).Format(dateKeyLayout)] = o
	}
	return &OverrideTable{overrides: m}
}

// Lookup returns the override for the given date, if any.
func (t *OverrideTable) Lookup(date time.Time) (model.Override, bool) {
	o, ok := t.overrides[model.DateOnly(date).Format(dateKeyLayout)]
	return o, ok
}

// Validate checks every override for shape exclusivity and weekday bounds.
// Dates are visited in ascending order so a broken configuration always
// reports the same entry first.
func (t *OverrideTable) Validate() error {
	keys := make([]string, 0, len(t.overrides))
	for k := range t.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		o := t.overrides[k]
		if o.UseWeekday != 0 && o.HasPatches {
			return fmt.Errorf("%w: override for %s sets both use_weekday and a patch list", ErrAmbiguousOverride, k)
		}
		if o.UseWeekday != 0 && (o.UseWeekday < 1 || o.UseWeekday > 7) {
			return fmt.Errorf("%w: override for %s: use_weekday %d out of range 1..7", ErrInvalidDate, k, o.UseWeekday)
		}
	}
	return nil
}
