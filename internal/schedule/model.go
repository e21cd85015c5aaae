package schedule

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// validTransitions is the only place status flow is defined. Terminal
// states (completed, cancelled, no_show) have no outgoing edges.
var validTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type EntryKind string

const (
	// KindAppointment is a patient visit; KindBlock reserves the
	// resource's time with no patient (vacation, meeting).
	KindAppointment EntryKind = "appointment"
	KindBlock       EntryKind = "block"
)

type Resource struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is an occupied interval on a resource's calendar. A block
// is the same record with Kind=block and an empty PatientRef; both count
// for conflict detection. Rows are never deleted, cancellation is a
// status change.
type Appointment struct {
	ID         uuid.UUID
	ResourceID uuid.UUID
	PatientRef string
	Kind       EntryKind
	Slot       TimeSlot
	Status     Status
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the entry occupies its resource's time for
// conflict purposes.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type ExamResult struct {
	ID         uuid.UUID
	PatientRef string
	ResourceID uuid.UUID
	RecordedAt time.Time
	Summary    string
}

type TimelineNote struct {
	ID         uuid.UUID
	PatientRef string
	Author     string
	CreatedAt  time.Time
	Body       string
}
