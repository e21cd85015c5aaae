package schedule

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictError reports the first existing interval that overlaps a
// candidate slot, so callers can tell the user which booking is in the
// way.
type ConflictError struct {
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with existing entry %s", e.ConflictingID)
}

// FindConflict scans the resource's entries for one day. Cancelled
// entries never conflict; excludeID skips the caller's own interval so a
// reschedule onto the same slot is not blocked by itself. Pass uuid.Nil
// to exclude nothing.
func FindConflict(candidate TimeSlot, existing []Appointment, excludeID uuid.UUID) *ConflictError {
	for _, e := range existing {
		if e.ID == excludeID {
			continue
		}
		if !e.Active() {
			continue
		}
		if candidate.Overlaps(e.Slot) {
			return &ConflictError{ConflictingID: e.ID}
		}
	}
	return nil
}
