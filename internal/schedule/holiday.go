package schedule

import (
	"time"

	"schoolcal/internal/model"
)

// HolidayCalendar answers whether normal instruction is suspended on a
// given date. Rules are independent; a date is a holiday if any rule
// matches, so evaluation order carries no meaning.
type HolidayCalendar struct {
	rules []model.HolidayRule
}

// NewHolidayCalendar builds a calendar from normalized holiday rules.
func NewHolidayCalendar(rules []model.HolidayRule) *HolidayCalendar {
	return &HolidayCalendar{rules: rules}
}

// IsHoliday reports whether the given date matches any configured rule.
func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	day := model.DateOnly(date)
	weekday := model.ISOWeekday(day)

	for _, rule := range c.rules {
		if ruleMatches(rule, day, weekday) {
			return true
		}
	}
	return false
}

func ruleMatches(rule model.HolidayRule, day time.Time, weekday int) bool {
	if rule.Date != nil {
		if !model.DateOnly(*rule.Date).Equal(day) {
			return false
		}
	} else {
		if day.Before(model.DateOnly(rule.Start)) || day.After(model.DateOnly(rule.End)) {
			return false
		}
	}

	// Optional weekday filter: empty means any weekday qualifies.
	if len(rule.Weekdays) > 0 {
		found := false
		for _, wd := range rule.Weekdays {
			if wd == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
