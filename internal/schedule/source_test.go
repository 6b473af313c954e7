package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcal/internal/model"
)

func septemberSource(name string) model.TimetableSource {
	return model.TimetableSource{
		Name:  name,
		Start: day(2025, time.September, 1),
		End:   day(2025, time.September, 30),
	}
}

func TestEffectiveWindow(t *testing.T) {
	// Wednesday 2025-09-10; Monday of that week is 2025-09-08.
	today := day(2025, time.September, 10)

	t.Run("weeks only", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleWeeks = 1

		start, end, ok := effectiveWindow(s, today)
		require.True(t, ok)
		assert.Equal(t, day(2025, time.September, 8), start)
		assert.Equal(t, day(2025, time.September, 14), end)
	})

	t.Run("days only", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleDays = 3

		start, end, ok := effectiveWindow(s, today)
		require.True(t, ok)
		assert.Equal(t, today, start)
		assert.Equal(t, day(2025, time.September, 12), end)
	})

	t.Run("both enabled takes the wider end", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleWeeks = 1
		s.VisibleDays = 10

		start, end, ok := effectiveWindow(s, today)
		require.True(t, ok)
		assert.Equal(t, day(2025, time.September, 8), start)
		assert.Equal(t, day(2025, time.September, 19), end)
	})

	t.Run("both disabled contributes nothing", func(t *testing.T) {
		s := septemberSource("s")
		_, _, ok := effectiveWindow(s, today)
		assert.False(t, ok)
	})

	t.Run("clamped to the source range", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleWeeks = 8

		start, end, ok := effectiveWindow(s, today)
		require.True(t, ok)
		assert.Equal(t, day(2025, time.September, 8), start)
		assert.Equal(t, day(2025, time.September, 30), end)
	})

	t.Run("ignore past days", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleWeeks = 1
		s.IgnorePastDays = true

		start, end, ok := effectiveWindow(s, today)
		require.True(t, ok)
		assert.Equal(t, today, start)
		assert.Equal(t, day(2025, time.September, 14), end)
	})

	t.Run("window entirely before the range", func(t *testing.T) {
		s := septemberSource("s")
		s.VisibleDays = 3

		_, _, ok := effectiveWindow(s, day(2025, time.August, 1))
		assert.False(t, ok)
	})
}

func TestCandidatesFirstDeclaredWins(t *testing.T) {
	first := septemberSource("first")
	first.VisibleDays = 5
	second := septemberSource("second")
	second.VisibleDays = 10

	ss := NewSourceSet([]model.TimetableSource{first, second})
	today := day(2025, time.September, 1)

	dates, authority, err := ss.Candidates(today)
	require.NoError(t, err)
	require.Len(t, dates, 10)

	// Days both sources admit belong to the first; the tail only to the
	// second.
	assert.Equal(t, 0, authority["2025-09-01"])
	assert.Equal(t, 0, authority["2025-09-05"])
	assert.Equal(t, 1, authority["2025-09-06"])
	assert.Equal(t, 1, authority["2025-09-10"])

	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i-1].Before(dates[i]), "dates must ascend")
	}
}

func TestPatternFor(t *testing.T) {
	s := septemberSource("s")
	s.Entries = []model.PatternEntry{
		{Weekday: 1, PeriodID: "1", SubjectID: "Math"},
		{Weekday: 2, PeriodID: "1", SubjectID: "Eng"},
		{Weekday: 1, PeriodID: "2", SubjectID: "Sci"},
	}
	ss := NewSourceSet([]model.TimetableSource{s})

	monday := ss.PatternFor(0, 1)
	require.Len(t, monday, 2)
	assert.Equal(t, "Math", monday[0].SubjectID)
	assert.Equal(t, "Sci", monday[1].SubjectID)
	assert.Empty(t, ss.PatternFor(0, 5))
}
