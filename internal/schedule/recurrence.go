package schedule

import (
	"errors"
	"fmt"
	"time"
)

// maxOccurrences bounds how many slots a single rule may expand to, so a
// far-off end date cannot produce an unbounded series.
const maxOccurrences = 366

var ErrEmptyWeekdaySet = errors.New("recurrence rule has no weekdays selected")

type InvalidRuleError struct {
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid recurrence rule: %s", e.Reason)
}

// RecurrenceRule describes a weekly repetition: which weekdays, until
// which calendar day (inclusive). Rules are expanded eagerly into
// concrete slots and never stored.
type RecurrenceRule struct {
	Weekdays map[time.Weekday]bool
	EndDate  time.Time
}

func (r RecurrenceRule) Validate() error {
	selected := 0
	for _, on := range r.Weekdays {
		if on {
			selected++
		}
	}
	if selected == 0 {
		return &InvalidRuleError{Reason: ErrEmptyWeekdaySet.Error()}
	}
	return nil
}

// Expand walks calendar days from startDay to rule.EndDate inclusive and
// emits one TimeSlot per weekday match. An end date before the start day
// yields an empty series, not an error.
func Expand(rule RecurrenceRule, startDay time.Time, startMinute, duration int) ([]TimeSlot, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	probe := TimeSlot{Day: DayOf(startDay), Start: startMinute, Duration: duration}
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	day := DayOf(startDay)
	end := DayOf(rule.EndDate)

	var out []TimeSlot
	for !day.After(end) {
		if rule.Weekdays[day.Weekday()] {
			if len(out) == maxOccurrences {
				return nil, &InvalidRuleError{
					Reason: fmt.Sprintf("rule expands past %d occurrences", maxOccurrences),
				}
			}
			out = append(out, TimeSlot{Day: day, Start: startMinute, Duration: duration})
		}
		day = day.AddDate(0, 0, 1)
	}

	return out, nil
}
