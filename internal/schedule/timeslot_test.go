package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTimeSlotValidate(t *testing.T) {
	tests := []struct {
		name    string
		slot    TimeSlot
		wantErr error
	}{
		{"valid", NewTimeSlot(day("2025-01-28"), 9 * 60, 30), nil},
		{"zero duration", NewTimeSlot(day("2025-01-28"), 9 * 60, 0), ErrInvalidDuration},
		{"negative duration", NewTimeSlot(day("2025-01-28"), 9 * 60, -15), ErrInvalidDuration},
		{"negative start", NewTimeSlot(day("2025-01-28"), -10, 30), ErrInvalidStart},
		{"start past midnight", NewTimeSlot(day("2025-01-28"), 24 * 60, 30), ErrInvalidStart},
		{"crosses midnight", NewTimeSlot(day("2025-01-28"), 23 * 60, 90), ErrCrossesMidnight},
		{"ends exactly at midnight", NewTimeSlot(day("2025-01-28"), 23 * 60, 60), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	nine := NewTimeSlot(day("2025-01-28"), 9*60, 30)

	// back to back slots touch but do not overlap
	nineThirty := NewTimeSlot(day("2025-01-28"), 9*60+30, 30)
	assert.False(t, nine.Overlaps(nineThirty))
	assert.False(t, nineThirty.Overlaps(nine))

	// 09:15 lands inside 09:00-09:30
	nineFifteen := NewTimeSlot(day("2025-01-28"), 9*60+15, 30)
	assert.True(t, nine.Overlaps(nineFifteen))
}

func TestOverlapsSymmetry(t *testing.T) {
	d := day("2025-01-28")
	slots := []TimeSlot{
		NewTimeSlot(d, 0, 60),
		NewTimeSlot(d, 30, 60),
		NewTimeSlot(d, 60, 15),
		NewTimeSlot(d, 90, 240),
		NewTimeSlot(d, 23*60, 60),
	}

	for _, a := range slots {
		for _, b := range slots {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "overlaps(%s, %s)", a, b)
		}
	}
}

func TestOverlapsSelf(t *testing.T) {
	slot := NewTimeSlot(day("2025-01-28"), 10*60, 45)
	assert.True(t, slot.Overlaps(slot))
}

func TestOverlapsDifferentDays(t *testing.T) {
	a := NewTimeSlot(day("2025-01-28"), 9*60, 30)
	b := NewTimeSlot(day("2025-01-29"), 9*60, 30)
	assert.False(t, a.Overlaps(b))
}

func TestSlotFromTimesRoundTrip(t *testing.T) {
	slot := NewTimeSlot(day("2025-01-28"), 14*60+30, 45)

	got := SlotFromTimes(slot.StartTime(), slot.EndTime())
	require.Equal(t, slot, got)
}

func TestDayOfNormalizes(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	late := time.Date(2025, 1, 28, 1, 30, 0, 0, loc) // 2025-01-27 22:30 UTC

	assert.Equal(t, day("2025-01-27"), DayOf(late))
}
