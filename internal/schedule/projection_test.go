package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(resourceID uuid.UUID, d string, start int) Appointment {
	return Appointment{
		ID:         uuid.New(),
		ResourceID: resourceID,
		PatientRef: "p",
		Kind:       KindAppointment,
		Slot:       NewTimeSlot(day(d), start, 30),
		Status:     StatusScheduled,
	}
}

func TestViewRange(t *testing.T) {
	tests := []struct {
		name   string
		view   GridView
		anchor string
		from   string
		to     string
	}{
		{"day", ViewDay, "2025-01-29", "2025-01-29", "2025-01-29"},
		{"week from wednesday", ViewWeek, "2025-01-29", "2025-01-27", "2025-02-02"},
		{"week from monday", ViewWeek, "2025-01-27", "2025-01-27", "2025-02-02"},
		{"week from sunday", ViewWeek, "2025-02-02", "2025-01-27", "2025-02-02"},
		{"month", ViewMonth, "2025-01-15", "2025-01-01", "2025-01-31"},
		{"february", ViewMonth, "2025-02-28", "2025-02-01", "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := ViewRange(tt.view, day(tt.anchor))
			assert.Equal(t, day(tt.from), from)
			assert.Equal(t, day(tt.to), to)
		})
	}
}

func TestProjectDropsNothingInRange(t *testing.T) {
	resourceID := uuid.New()

	entries := []Appointment{
		entry(resourceID, "2025-01-27", 9*60),
		entry(resourceID, "2025-01-29", 10*60),
		entry(resourceID, "2025-01-29", 9*60),
		entry(resourceID, "2025-02-02", 14*60),
		entry(resourceID, "2025-02-03", 9*60), // outside the week
	}

	grid := Project(entries, ViewWeek, day("2025-01-29"), nil)

	require.Len(t, grid.Days, 7)

	total := 0
	seen := make(map[uuid.UUID]bool)
	for _, gd := range grid.Days {
		for _, e := range gd.Entries {
			assert.False(t, seen[e.ID], "duplicate entry %s", e.ID)
			seen[e.ID] = true
			total++
		}
	}
	assert.Equal(t, 4, total)

	// within a day, entries are sorted by start
	wednesday := grid.Days[2]
	require.Len(t, wednesday.Entries, 2)
	assert.Equal(t, 9*60, wednesday.Entries[0].Slot.Start)
	assert.Equal(t, 10*60, wednesday.Entries[1].Slot.Start)
}

func TestProjectDeduplicates(t *testing.T) {
	resourceID := uuid.New()
	e := entry(resourceID, "2025-01-29", 9*60)

	grid := Project([]Appointment{e, e}, ViewDay, day("2025-01-29"), nil)

	require.Len(t, grid.Days, 1)
	assert.Len(t, grid.Days[0].Entries, 1)
}

func TestProjectResourceFilter(t *testing.T) {
	wanted := uuid.New()
	other := uuid.New()

	entries := []Appointment{
		entry(wanted, "2025-01-29", 9*60),
		entry(other, "2025-01-29", 10*60),
	}

	grid := Project(entries, ViewDay, day("2025-01-29"), map[uuid.UUID]bool{wanted: true})

	require.Len(t, grid.Days, 1)
	require.Len(t, grid.Days[0].Entries, 1)
	assert.Equal(t, wanted, grid.Days[0].Entries[0].ResourceID)
}

func TestProjectIsPure(t *testing.T) {
	resourceID := uuid.New()
	entries := []Appointment{
		entry(resourceID, "2025-01-29", 10*60),
		entry(resourceID, "2025-01-29", 9*60),
	}
	original := make([]Appointment, len(entries))
	copy(original, entries)

	_ = Project(entries, ViewDay, day("2025-01-29"), nil)
	_ = Project(entries, ViewDay, day("2025-01-29"), nil)

	assert.Equal(t, original, entries)
}

func TestProjectMonthCoversAllDays(t *testing.T) {
	grid := Project(nil, ViewMonth, day("2025-02-10"), nil)

	require.Len(t, grid.Days, 28)
	assert.Equal(t, day("2025-02-01"), grid.Days[0].Day)
	assert.Equal(t, day("2025-02-28"), grid.Days[27].Day)
	for _, gd := range grid.Days {
		assert.Empty(t, gd.Entries)
	}
}
