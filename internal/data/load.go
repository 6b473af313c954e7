// Package data loads the JSON data files (periods, subjects, timetables,
// holidays, overrides) and normalizes their historical format variants
// into the canonical shapes the resolution engine consumes. The engine
// never sees version tags or legacy forms.
package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
	"schoolcal/internal/schedule"
)

const dateLayout = "2006-01-02"

// versionKey tags object-shaped data files with their schema version.
// It is stripped before interpretation everywhere it may appear.
const versionKey = "$version"

// Paths names the five data files of one configuration snapshot.
type Paths struct {
	Periods   string
	Subjects  string
	Timetable string
	Holidays  string
	Overrides string
}

// DefaultPaths returns the conventional file layout under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Periods:   filepath.Join(dir, "periods.json"),
		Subjects:  filepath.Join(dir, "subjects.json"),
		Timetable: filepath.Join(dir, "timetable.json"),
		Holidays:  filepath.Join(dir, "holidays.json"),
		Overrides: filepath.Join(dir, "overrides.json"),
	}
}

// TermDefaults supplies the date range assumed for v1 timetables, which
// carry no range of their own.
type TermDefaults struct {
	Start time.Time
	End   time.Time
}

// LoadSnapshot reads and normalizes all data files into one engine
// snapshot. Dates are interpreted in loc.
func LoadSnapshot(paths Paths, defaults TermDefaults, loc *time.Location) (schedule.Snapshot, error) {
	var snap schedule.Snapshot
	var err error

	if snap.Periods, err = LoadPeriods(paths.Periods); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Subjects, err = LoadSubjects(paths.Subjects); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Sources, err = LoadTimetables(paths.Timetable, defaults, loc); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Holidays, err = LoadHolidays(paths.Holidays, loc); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Overrides, err = LoadOverrides(paths.Overrides, loc); err != nil {
		return schedule.Snapshot{}, err
	}

	return snap, nil
}

// LoadPeriods reads a map of period ID to {"start": "HH:MM", "end": "HH:MM"}.
func LoadPeriods(path string) ([]model.Period, error) {
	raw := make(map[string]json.RawMessage)
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	delete(raw, versionKey)

	ids := sortedKeys(raw)
	periods := make([]model.Period, 0, len(raw))
	for _, id := range ids {
		var pd struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(raw[id], &pd); err != nil {
			return nil, fmt.Errorf("%s: period %q: %w", path, id, err)
		}
		start, err := model.ParseClock(pd.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: period %q: %v", schedule.ErrInvalidDate, path, id, err)
		}
		end, err := model.ParseClock(pd.End)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: period %q: %v", schedule.ErrInvalidDate, path, id, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("%w: %s: period %q: start %s is not before end %s",
				schedule.ErrInvalidDate, path, id, start, end)
		}
		periods = append(periods, model.Period{ID: id, Start: start, End: end})
	}
	return periods, nil
}

// LoadSubjects reads a map of subject ID to display label.
func LoadSubjects(path string) ([]model.Subject, error) {
	raw := make(map[string]json.RawMessage)
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	delete(raw, versionKey)

	ids := sortedKeys(raw)
	subjects := make([]model.Subject, 0, len(raw))
	for _, id := range ids {
		var label string
		if err := json.Unmarshal(raw[id], &label); err != nil {
			return nil, fmt.Errorf("%s: subject %q: %w", path, id, err)
		}
		subjects = append(subjects, model.Subject{ID: id, Label: label})
	}
	return subjects, nil
}

func readJSON(path string, v any) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseDate parses a YYYY-MM-DD string into midnight of loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", schedule.ErrInvalidDate, s)
	}
	return t, nil
}

// flexID accepts both JSON strings and numbers, since historical data
// files wrote period IDs as bare numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexID(n.String())
	return nil
}

// warnOverlaps logs a warning for every pair of sources with intersecting
// date ranges. Overlap is legal (first-declared wins per date) but is
// usually a configuration mistake.
func warnOverlaps(sources []model.TimetableSource) {
	for i := range sources {
		for j := i + 1; j < len(sources); j++ {
			a, b := sources[i], sources[j]
			if !a.Start.After(b.End) && !b.Start.After(a.End) {
				appLog.Warn("overlapping timetable date ranges",
					"first", a.Name,
					"first_range", a.Start.Format(dateLayout)+".."+a.End.Format(dateLayout),
					"second", b.Name,
					"second_range", b.Start.Format(dateLayout)+".."+b.End.Format(dateLayout),
				)
			}
		}
	}
}
