package data

import (
	"encoding/json"
	"fmt"
	"time"

	"schoolcal/internal/model"
	"schoolcal/internal/schedule"
)

// holidayRule is the on-disk shape of one holiday rule.
type holidayRule struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Filter *struct {
		Weekday json.RawMessage `json:"weekday"`
	} `json:"filter"`
}

// LoadHolidays reads holiday rules and normalizes the three accepted
// forms into one rule list:
//
//   - {"holidays": [...]} (new object form)
//   - bare array of rules
//   - legacy map of date to bool, where only explicitly true values
//     produce a (single-date, unfiltered) holiday rule
func LoadHolidays(path string, loc *time.Location) ([]model.HolidayRule, error) {
	var raw json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	// Bare array form.
	var list []holidayRule
	if err := json.Unmarshal(raw, &list); err == nil {
		return normalizeRules(path, list, loc)
	}

	var head struct {
		Holidays []holidayRule `json:"holidays"`
	}
	if err := json.Unmarshal(raw, &head); err == nil && head.Holidays != nil {
		return normalizeRules(path, head.Holidays, loc)
	}

	return loadLegacyHolidays(path, raw, loc)
}

func normalizeRules(path string, list []holidayRule, loc *time.Location) ([]model.HolidayRule, error) {
	rules := make([]model.HolidayRule, 0, len(list))
	for i, h := range list {
		rule, err := normalizeRule(h, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: holiday rule %d: %w", path, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func normalizeRule(h holidayRule, loc *time.Location) (model.HolidayRule, error) {
	var rule model.HolidayRule

	switch {
	case h.Date != "":
		d, err := parseDate(h.Date, loc)
		if err != nil {
			return rule, err
		}
		rule.Date = &d
	case h.Start != "" && h.End != "":
		start, err := parseDate(h.Start, loc)
		if err != nil {
			return rule, err
		}
		end, err := parseDate(h.End, loc)
		if err != nil {
			return rule, err
		}
		if start.After(end) {
			return rule, fmt.Errorf("%w: start %s is after end %s", schedule.ErrInvalidDate, h.Start, h.End)
		}
		rule.Start, rule.End = start, end
	default:
		return rule, fmt.Errorf("%w: holiday rule needs a date or a start/end range", schedule.ErrInvalidDate)
	}

	if h.Filter != nil && len(h.Filter.Weekday) > 0 {
		weekdays, err := decodeWeekdayFilter(h.Filter.Weekday)
		if err != nil {
			return rule, err
		}
		rule.Weekdays = weekdays
	}

	return rule, nil
}

// decodeWeekdayFilter accepts a single weekday or a list of weekdays.
func decodeWeekdayFilter(raw json.RawMessage) ([]int, error) {
	var one int
	if err := json.Unmarshal(raw, &one); err == nil {
		return validateWeekdays([]int{one})
	}
	var many []int
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("%w: weekday filter must be an integer or a list of integers", schedule.ErrInvalidDate)
	}
	return validateWeekdays(many)
}

func validateWeekdays(weekdays []int) ([]int, error) {
	for _, wd := range weekdays {
		if wd < 1 || wd > 7 {
			return nil, fmt.Errorf("%w: weekday filter value %d out of range 1..7", schedule.ErrInvalidDate, wd)
		}
	}
	return weekdays, nil
}

// loadLegacyHolidays handles the historical map form {"YYYY-MM-DD": bool}.
// Only true-valued entries become rules; false marks a non-holiday and is
// dropped.
func loadLegacyHolidays(path string, raw json.RawMessage, loc *time.Location) ([]model.HolidayRule, error) {
	m := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%s: unrecognized holidays format: %w", path, err)
	}
	delete(m, versionKey)

	var rules []model.HolidayRule
	for _, dayStr := range sortedKeys(m) {
		var flag bool
		if err := json.Unmarshal(m[dayStr], &flag); err != nil {
			return nil, fmt.Errorf("%s: holiday entry %q: expected a boolean: %w", path, dayStr, err)
		}
		if !flag {
			continue
		}
		d, err := parseDate(dayStr, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: holiday entry: %w", path, err)
		}
		rules = append(rules, model.HolidayRule{Date: &d})
	}
	return rules, nil
}
