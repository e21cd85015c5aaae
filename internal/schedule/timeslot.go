package schedule

import (
	"errors"
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidDuration = errors.New("slot duration must be positive")
	ErrInvalidStart    = errors.New("slot start must be within the day")
	ErrCrossesMidnight = errors.New("slot must not cross a date boundary")
)

// TimeSlot is a bookable unit: a calendar day plus a minute-granular
// window inside it. Day is normalized to midnight UTC; Start and
// Duration are minutes.
type TimeSlot struct {
	Day      time.Time
	Start    int
	Duration int
}

func NewTimeSlot(day time.Time, start, duration int) TimeSlot {
	return TimeSlot{
		Day:      DayOf(day),
		Start:    start,
		Duration: duration,
	}
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s TimeSlot) Validate() error {
	if s.Duration <= 0 {
		return ErrInvalidDuration
	}
	if s.Start < 0 || s.Start >= minutesPerDay {
		return ErrInvalidStart
	}
	if s.Start+s.Duration > minutesPerDay {
		return ErrCrossesMidnight
	}
	return nil
}

// End is the exclusive end minute of the slot.
func (s TimeSlot) End() int {
	return s.Start + s.Duration
}

// Overlaps reports whether two slots intersect. Intervals are half-open,
// so a slot ending at 09:00 does not overlap one starting at 09:00.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if !s.Day.Equal(other.Day) {
		return false
	}
	return s.Start < other.End() && other.Start < s.End()
}

// StartTime and EndTime convert the slot to absolute instants, used for
// storage and API payloads.
func (s TimeSlot) StartTime() time.Time {
	return s.Day.Add(time.Duration(s.Start) * time.Minute)
}

func (s TimeSlot) EndTime() time.Time {
	return s.Day.Add(time.Duration(s.End()) * time.Minute)
}

// SlotFromTimes rebuilds a TimeSlot from stored start/end instants.
func SlotFromTimes(start, end time.Time) TimeSlot {
	day := DayOf(start)
	startMin := int(start.UTC().Sub(day) / time.Minute)
	return TimeSlot{
		Day:      day,
		Start:    startMin,
		Duration: int(end.Sub(start) / time.Minute),
	}
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %02d:%02d+%dm",
		s.Day.Format("2006-01-02"), s.Start/60, s.Start%60, s.Duration)
}
