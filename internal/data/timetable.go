package data

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"schoolcal/internal/model"
	"schoolcal/internal/schedule"
)

// Historical defaults carried by v1 timetables and v2 entries that omit
// their visibility policy.
const (
	defaultVisibleWeeks = 2
	defaultVisibleDays  = 0
)

// weeklyEntry is the on-disk shape of one weekly pattern cell.
type weeklyEntry struct {
	Weekday int    `json:"weekday"`
	Period  flexID `json:"period"`
	Subject flexID `json:"subject"`
}

// timetableRef is one entry of a v2 timetable descriptor.
type timetableRef struct {
	File           string `json:"file"`
	Start          string `json:"start"`
	End            string `json:"end"`
	VisibleWeeks   *int   `json:"visible_weeks"`
	VisibleDays    *int   `json:"visible_days"`
	IgnorePastDays bool   `json:"ignore_past_days"`
}

// LoadTimetables reads the timetable descriptor and normalizes all three
// accepted forms into an ordered source list:
//
//   - bare array of weekly entries (v1)
//   - {"timetable": [...]} (v1)
//   - {"$version": 2, "timetables": [{file, start, end, ...}]} (v2),
//     each referenced file again being one of the v1 forms
//
// v1 sources get the configured default term range; declaration order of
// v2 entries is preserved because it decides source precedence.
func LoadTimetables(path string, defaults TermDefaults, loc *time.Location) ([]model.TimetableSource, error) {
	var raw json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	var head struct {
		Version    int             `json:"$version"`
		Timetables []timetableRef  `json:"timetables"`
		Timetable  json.RawMessage `json:"timetable"`
	}
	// A bare array fails the object unmarshal; that is the legacy v1 form.
	isObject := json.Unmarshal(raw, &head) == nil

	if isObject && head.Version == 2 && head.Timetables != nil {
		sources, err := loadV2(path, head.Timetables, loc)
		if err != nil {
			return nil, err
		}
		warnOverlaps(sources)
		return sources, nil
	}

	entries, err := decodeEntryList(path, raw)
	if err != nil {
		return nil, err
	}
	return []model.TimetableSource{{
		Name:         filepath.Base(path),
		Entries:      entries,
		Start:        model.DateOnly(defaults.Start.In(loc)),
		End:          model.DateOnly(defaults.End.In(loc)),
		VisibleWeeks: defaultVisibleWeeks,
		VisibleDays:  defaultVisibleDays,
	}}, nil
}

func loadV2(path string, refs []timetableRef, loc *time.Location) ([]model.TimetableSource, error) {
	dir := filepath.Dir(path)
	sources := make([]model.TimetableSource, 0, len(refs))

	for _, ref := range refs {
		start, err := parseDate(ref.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: start: %w", path, ref.File, err)
		}
		end, err := parseDate(ref.End, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: end: %w", path, ref.File, err)
		}
		if start.After(end) {
			return nil, fmt.Errorf("%w: %s: %q: start %s is after end %s",
				schedule.ErrInvalidDate, path, ref.File, ref.Start, ref.End)
		}

		file := ref.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		var raw json.RawMessage
		if err := readJSON(file, &raw); err != nil {
			return nil, err
		}
		entries, err := decodeEntryList(file, raw)
		if err != nil {
			return nil, err
		}

		weeks := defaultVisibleWeeks
		if ref.VisibleWeeks != nil {
			weeks = *ref.VisibleWeeks
		}
		days := defaultVisibleDays
		if ref.VisibleDays != nil {
			days = *ref.VisibleDays
		}

		sources = append(sources, model.TimetableSource{
			Name:           filepath.Base(ref.File),
			Entries:        entries,
			Start:          start,
			End:            end,
			VisibleWeeks:   weeks,
			VisibleDays:    days,
			IgnorePastDays: ref.IgnorePastDays,
		})
	}

	return sources, nil
}

// decodeEntryList accepts either a bare entry array or the v1 object
// wrapper {"timetable": [...]}.
func decodeEntryList(path string, raw json.RawMessage) ([]model.PatternEntry, error) {
	var list []weeklyEntry
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapper struct {
			Timetable []weeklyEntry `json:"timetable"`
		}
		if werr := json.Unmarshal(raw, &wrapper); werr != nil || wrapper.Timetable == nil {
			return nil, fmt.Errorf("%s: unrecognized timetable format: %w", path, err)
		}
		list = wrapper.Timetable
	}

	entries := make([]model.PatternEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, model.PatternEntry{
			Weekday:   e.Weekday,
			PeriodID:  string(e.Period),
			SubjectID: string(e.Subject),
		})
	}
	return entries, nil
}
