package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GridView string

const (
	ViewDay   GridView = "day"
	ViewWeek  GridView = "week"
	ViewMonth GridView = "month"
)

func ParseGridView(s string) (GridView, error) {
	switch GridView(s) {
	case ViewDay, ViewWeek, ViewMonth:
		return GridView(s), nil
	}
	return "", fmt.Errorf("unknown grid view %q", s)
}

type GridDay struct {
	Day     time.Time
	Entries []Appointment
}

type Grid struct {
	View GridView
	From time.Time
	To   time.Time
	Days []GridDay
}

// ViewRange resolves a view plus anchor date to an inclusive day range.
// Weeks start on Monday; month is the anchor's calendar month.
func ViewRange(view GridView, anchor time.Time) (time.Time, time.Time) {
	day := DayOf(anchor)
	switch view {
	case ViewWeek:
		offset := (int(day.Weekday()) + 6) % 7
		from := day.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 6)
	case ViewMonth:
		from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, -1)
	default:
		return day, day
	}
}

// Project buckets entries into one GridDay per calendar day of the
// view's range. Pure: the inputs are never mutated. Entries outside the
// range or filtered resources are dropped; nothing inside is, and no
// entry appears twice.
func Project(entries []Appointment, view GridView, anchor time.Time, resourceFilter map[uuid.UUID]bool) Grid {
	from, to := ViewRange(view, anchor)

	byDay := make(map[time.Time][]Appointment)
	seen := make(map[uuid.UUID]bool)

	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		if len(resourceFilter) > 0 && !resourceFilter[e.ResourceID] {
			continue
		}
		day := e.Slot.Day
		if day.Before(from) || day.After(to) {
			continue
		}
		seen[e.ID] = true
		byDay[day] = append(byDay[day], e)
	}

	grid := Grid{View: view, From: from, To: to}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dayEntries := byDay[day]
		sortBySlot(dayEntries)
		grid.Days = append(grid.Days, GridDay{Day: day, Entries: dayEntries})
	}

	return grid
}
