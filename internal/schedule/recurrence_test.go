package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWeeklyMondays(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Monday: true},
		EndDate:  day("2025-02-10"),
	}

	// 2025-01-27 is a Monday, 2025-02-10 is a Monday too and inclusive
	slots, err := Expand(rule, day("2025-01-27"), 9*60, 30)
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, day("2025-01-27"), slots[0].Day)
	assert.Equal(t, day("2025-02-03"), slots[1].Day)
	assert.Equal(t, day("2025-02-10"), slots[2].Day)

	for _, s := range slots {
		assert.Equal(t, 9*60, s.Start)
		assert.Equal(t, 30, s.Duration)
	}
}

func TestExpandTwoWeekWindow(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Monday: true},
		EndDate:  day("2025-02-09"), // a Sunday, so 2025-02-10 excluded
	}

	slots, err := Expand(rule, day("2025-01-27"), 10*60, 60)
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.Equal(t, day("2025-01-27"), slots[0].Day)
	assert.Equal(t, day("2025-02-03"), slots[1].Day)
}

func TestExpandEndBeforeStartIsVacuous(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Monday: true},
		EndDate:  day("2025-01-01"),
	}

	slots, err := Expand(rule, day("2025-01-27"), 9*60, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestExpandEmptyWeekdaySet(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{},
		EndDate:  day("2025-02-10"),
	}

	_, err := Expand(rule, day("2025-01-27"), 9*60, 30)

	var invalidRule *InvalidRuleError
	require.ErrorAs(t, err, &invalidRule)
}

func TestExpandAllFalseWeekdaySet(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Monday: false},
		EndDate:  day("2025-02-10"),
	}

	_, err := Expand(rule, day("2025-01-27"), 9*60, 30)

	var invalidRule *InvalidRuleError
	require.ErrorAs(t, err, &invalidRule)
}

func TestExpandInvalidSlot(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Monday: true},
		EndDate:  day("2025-02-10"),
	}

	_, err := Expand(rule, day("2025-01-27"), 23*60, 120)
	assert.ErrorIs(t, err, ErrCrossesMidnight)
}

func TestExpandCapsSeriesLength(t *testing.T) {
	everyDay := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true, time.Saturday: true,
		time.Sunday: true,
	}

	// 2025-01-01 through 2026-01-01 inclusive is exactly 366 days
	slots, err := Expand(RecurrenceRule{Weekdays: everyDay, EndDate: day("2026-01-01")},
		day("2025-01-01"), 9*60, 30)
	require.NoError(t, err)
	assert.Len(t, slots, maxOccurrences)

	// one more day tips it over the cap
	_, err = Expand(RecurrenceRule{Weekdays: everyDay, EndDate: day("2026-01-02")},
		day("2025-01-01"), 9*60, 30)
	var invalidRule *InvalidRuleError
	require.ErrorAs(t, err, &invalidRule)
}

func TestExpandIsDeterministic(t *testing.T) {
	rule := RecurrenceRule{
		Weekdays: map[time.Weekday]bool{time.Tuesday: true, time.Friday: true},
		EndDate:  day("2025-03-01"),
	}

	first, err := Expand(rule, day("2025-01-27"), 11*60, 20)
	require.NoError(t, err)
	second, err := Expand(rule, day("2025-01-27"), 11*60, 20)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
