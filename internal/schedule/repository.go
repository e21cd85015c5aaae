package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all store interactions needed by the scheduler.
// Implementations must keep add/update atomic per call: a failed write
// leaves no partial state visible to readers.
type Repository interface {
	CreateResource(ctx context.Context, name string, specialty *string) (*Resource, error)
	GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	UpdateResource(ctx context.Context, id uuid.UUID, name string, specialty *string) (*Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// UpdateAppointmentSlot only applies while the row still holds the
	// given status; a concurrent status change makes it report
	// ErrAppointmentNotFound, mirroring UpdateAppointmentStatus.
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, from Status, slot TimeSlot) (*Appointment, error)

	// Conflict index: non-cancelled entries for one resource on one day.
	ListActiveByResourceDay(ctx context.Context, resourceID uuid.UUID, day time.Time) ([]Appointment, error)

	ListByResourceRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time, includeCancelled bool) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]Appointment, error)

	// No-show sweep: scheduled/confirmed appointments whose slot ended
	// before the cutoff.
	FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error)

	InsertExamResult(ctx context.Context, e ExamResult) (*ExamResult, error)
	ListExamResultsByPatient(ctx context.Context, patientRef string) ([]ExamResult, error)
	InsertNote(ctx context.Context, n TimelineNote) (*TimelineNote, error)
	ListNotesByPatient(ctx context.Context, patientRef string) ([]TimelineNote, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
