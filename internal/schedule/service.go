package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/config"
	redisclient "github.com/clinicore/agenda/internal/redis"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventStatusChanged          = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
	EventBlockPlaced            = "BLOCK_PLACED"
)

var (
	ErrResourceBusy      = errors.New("resource is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingPatientRef = errors.New("patient reference is required")
	ErrUnknownStatus     = errors.New("unknown status")
)

// Publisher pushes event payloads to the external notification service.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	events Publisher
	cache  *dayCache
}

// NewService wires the scheduler. events may be nil when no external
// notification channel is configured.
func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, events Publisher) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		events: events,
		cache:  newDayCache(cfg.DayCacheSize),
	}
}

type BookingRequest struct {
	ResourceID uuid.UUID
	PatientRef string
	Slot       TimeSlot
	Notes      *string
}

// Book reserves a slot for a patient. The conflict check and insert run
// as one unit under the resource lock so concurrent requests for the
// same resource cannot both pass the check.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if req.PatientRef == "" {
		return nil, ErrMissingPatientRef
	}
	if err := req.Slot.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetResourceByID(ctx, req.ResourceID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load resource: %w", err)
	}

	var created *Appointment

	err := s.locker.WithResourceLock(ctx, req.ResourceID, func(lockCtx context.Context) error {
		appt, err := s.placeLocked(lockCtx, Appointment{
			ResourceID: req.ResourceID,
			PatientRef: req.PatientRef,
			Kind:       KindAppointment,
			Slot:       req.Slot,
			Status:     StatusScheduled,
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}
		created = appt

		s.emitEvent(lockCtx, EventAppointmentCreated, appt, map[string]any{
			"patient_ref": appt.PatientRef,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	return created, nil
}

// PlaceBlock reserves a resource's time with no patient (vacation,
// meeting). Blocks conflict with appointments the same way appointments
// conflict with each other.
func (s *Service) PlaceBlock(ctx context.Context, resourceID uuid.UUID, slot TimeSlot, reason string) (*Appointment, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetResourceByID(ctx, resourceID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load resource: %w", err)
	}

	var notes *string
	if reason != "" {
		notes = &reason
	}

	var created *Appointment

	err := s.locker.WithResourceLock(ctx, resourceID, func(lockCtx context.Context) error {
		appt, err := s.placeLocked(lockCtx, Appointment{
			ResourceID: resourceID,
			Kind:       KindBlock,
			Slot:       slot,
			Status:     StatusScheduled,
			Notes:      notes,
		})
		if err != nil {
			return err
		}
		created = appt

		s.emitEvent(lockCtx, EventBlockPlaced, appt, map[string]any{
			"reason": reason,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	return created, nil
}

// placeLocked runs inside the resource lock: check the day's intervals,
// then insert. A conflict leaves the store untouched. The check reads
// the store directly, never the day cache: cached lists may be stale
// and a stale list here would admit a double booking.
func (s *Service) placeLocked(ctx context.Context, a Appointment) (*Appointment, error) {
	existing, err := s.repo.ListActiveByResourceDay(ctx, a.ResourceID, a.Slot.Day)
	if err != nil {
		return nil, fmt.Errorf("load day entries: %w", err)
	}

	if conflict := FindConflict(a.Slot, existing, uuid.Nil); conflict != nil {
		return nil, conflict
	}

	created, err := s.repo.CreateAppointment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.cache.Invalidate(a.ResourceID, a.Slot.Day)
	return created, nil
}

type SeriesRequest struct {
	ResourceID  uuid.UUID
	PatientRef  string // empty means the series is a recurring block
	Rule        RecurrenceRule
	StartDay    time.Time
	StartMinute int
	Duration    int
	Notes       *string
	// AllOrNothing rolls the whole series back on the first conflict.
	// Otherwise conflicting occurrences are skipped and reported.
	AllOrNothing bool
}

type SkippedOccurrence struct {
	Slot          TimeSlot
	ConflictingID uuid.UUID
}

type SeriesResult struct {
	Booked  []Appointment
	Skipped []SkippedOccurrence
}

// BookSeries expands a weekly rule and places each occurrence through
// the same lock/check/insert path as a single booking.
func (s *Service) BookSeries(ctx context.Context, req SeriesRequest) (*SeriesResult, error) {
	slots, err := Expand(req.Rule, req.StartDay, req.StartMinute, req.Duration)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetResourceByID(ctx, req.ResourceID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load resource: %w", err)
	}

	kind := KindBlock
	eventType := EventBlockPlaced
	if req.PatientRef != "" {
		kind = KindAppointment
		eventType = EventAppointmentCreated
	}

	result := &SeriesResult{}

	for _, slot := range slots {
		var created *Appointment

		err := s.locker.WithResourceLock(ctx, req.ResourceID, func(lockCtx context.Context) error {
			appt, err := s.placeLocked(lockCtx, Appointment{
				ResourceID: req.ResourceID,
				PatientRef: req.PatientRef,
				Kind:       kind,
				Slot:       slot,
				Status:     StatusScheduled,
				Notes:      req.Notes,
			})
			if err != nil {
				return err
			}
			created = appt
			s.emitEvent(lockCtx, eventType, appt, map[string]any{
				"series": true,
			})
			return nil
		})

		if err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) && !req.AllOrNothing {
				result.Skipped = append(result.Skipped, SkippedOccurrence{
					Slot:          slot,
					ConflictingID: conflict.ConflictingID,
				})
				continue
			}

			if req.AllOrNothing {
				s.rollbackSeries(ctx, result.Booked)
				result.Booked = nil
			}
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				return result, ErrResourceBusy
			}
			return result, err
		}

		result.Booked = append(result.Booked, *created)
	}

	return result, nil
}

func (s *Service) rollbackSeries(ctx context.Context, booked []Appointment) {
	for _, appt := range booked {
		if _, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled); err != nil {
			log.Printf("series rollback: cancel %s: %v", appt.ID, err)
			continue
		}
		s.cache.Invalidate(appt.ResourceID, appt.Slot.Day)
	}
}

// Cancel marks an appointment cancelled. The row stays in the store for
// history; it just stops counting for conflicts.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, EventAppointmentCancelled)
}

// UpdateStatus applies one step of the status flow.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, ErrUnknownStatus
	}
	eventType := EventStatusChanged
	switch to {
	case StatusCancelled:
		eventType = EventAppointmentCancelled
	case StatusNoShow:
		eventType = EventAppointmentNoShow
	}
	return s.transition(ctx, id, to, eventType)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, eventType string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.cache.Invalidate(updated.ResourceID, updated.Slot.Day)

	s.emitEvent(ctx, eventType, updated, map[string]any{
		"old_status": string(appt.Status),
		"new_status": string(to),
	})

	return updated, nil
}

// Reschedule moves an existing entry to a new slot. The entry's own
// interval is excluded from the conflict check so moving onto (or
// within) its current slot is not blocked by itself.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newSlot TimeSlot) (*Appointment, error) {
	if err := newSlot.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return nil, ErrInvalidTransition
	}

	var updated *Appointment

	err = s.locker.WithResourceLock(ctx, appt.ResourceID, func(lockCtx context.Context) error {
		// Cancel and UpdateStatus don't take the resource lock, so the
		// status read above may already be outdated. Re-fetch under the
		// lock and let the status-guarded slot update catch the rest.
		fresh, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}
		switch fresh.Status {
		case StatusCompleted, StatusCancelled, StatusNoShow:
			return ErrInvalidTransition
		}

		existing, err := s.repo.ListActiveByResourceDay(lockCtx, fresh.ResourceID, newSlot.Day)
		if err != nil {
			return fmt.Errorf("load day entries: %w", err)
		}

		if conflict := FindConflict(newSlot, existing, fresh.ID); conflict != nil {
			return conflict
		}

		updated, err = s.repo.UpdateAppointmentSlot(lockCtx, fresh.ID, fresh.Status, newSlot)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// status moved between the re-fetch and the update
				return ErrInvalidTransition
			}
			return fmt.Errorf("update slot: %w", err)
		}

		s.cache.Invalidate(fresh.ResourceID, fresh.Slot.Day)
		s.cache.Invalidate(fresh.ResourceID, newSlot.Day)

		s.emitEvent(lockCtx, EventAppointmentRescheduled, updated, map[string]any{
			"old_slot": fresh.Slot.String(),
			"new_slot": newSlot.String(),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	return updated, nil
}

// GetAppointment retrieves a single entry by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// Agenda projects the store's entries onto a day/week/month grid for
// the given resources.
func (s *Service) Agenda(ctx context.Context, view GridView, anchor time.Time, resourceIDs []uuid.UUID) (*Grid, error) {
	from, to := ViewRange(view, anchor)

	var entries []Appointment
	filter := make(map[uuid.UUID]bool, len(resourceIDs))

	for _, resourceID := range resourceIDs {
		filter[resourceID] = true

		if view == ViewDay {
			dayEntries, err := s.cachedDayEntries(ctx, resourceID, from)
			if err != nil {
				return nil, fmt.Errorf("load agenda for %s: %w", resourceID, err)
			}
			entries = append(entries, dayEntries...)
			continue
		}

		rangeEntries, err := s.repo.ListByResourceRange(ctx, resourceID, from, to, false)
		if err != nil {
			return nil, fmt.Errorf("load agenda for %s: %w", resourceID, err)
		}
		entries = append(entries, rangeEntries...)
	}

	grid := Project(entries, view, anchor, filter)
	return &grid, nil
}

// PatientTimeline merges a patient's appointments, exam results and
// notes into one chronological history. Cancelled appointments are
// included: history is never dropped.
func (s *Service) PatientTimeline(ctx context.Context, patientRef string) ([]TimelineEntry, error) {
	appts, err := s.repo.ListByPatient(ctx, patientRef, 500, 0)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	exams, err := s.repo.ListExamResultsByPatient(ctx, patientRef)
	if err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	notes, err := s.repo.ListNotesByPatient(ctx, patientRef)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	return BuildTimeline(appts, exams, notes), nil
}

func (s *Service) AddExamResult(ctx context.Context, e ExamResult) (*ExamResult, error) {
	if e.PatientRef == "" {
		return nil, ErrMissingPatientRef
	}
	return s.repo.InsertExamResult(ctx, e)
}

func (s *Service) AddNote(ctx context.Context, n TimelineNote) (*TimelineNote, error) {
	if n.PatientRef == "" {
		return nil, ErrMissingPatientRef
	}
	return s.repo.InsertNote(ctx, n)
}

// MarkOverdueNoShows is intended to be called by the worker
// periodically. Appointments still scheduled or confirmed after their
// slot ended (plus grace) become no-shows.
func (s *Service) MarkOverdueNoShows(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.NoShowGrace)

	overdue, err := s.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	marked := 0
	for _, appt := range overdue {
		updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue // status moved under us, skip
			}
			log.Printf("failed to mark appointment %s as no-show: %v", appt.ID, err)
			continue
		}
		marked++

		s.cache.Invalidate(updated.ResourceID, updated.Slot.Day)
		s.emitEvent(ctx, EventAppointmentNoShow, updated, map[string]any{
			"reason": "worker",
		})
	}

	return marked, nil
}

// cachedDayEntries backs Agenda day reads only. Conflict checks must
// not use it: a racing read can re-install a pre-write snapshot after
// the writer's invalidation, and with multiple api-server processes
// each LRU is process-local, so staleness here is tolerable for
// presentation but never for correctness.
func (s *Service) cachedDayEntries(ctx context.Context, resourceID uuid.UUID, day time.Time) ([]Appointment, error) {
	day = DayOf(day)
	if cached, ok := s.cache.Get(resourceID, day); ok {
		return cached, nil
	}

	entries, err := s.repo.ListActiveByResourceDay(ctx, resourceID, day)
	if err != nil {
		return nil, err
	}

	s.cache.Put(resourceID, day, entries)
	return entries, nil
}

func (s *Service) emitEvent(ctx context.Context, eventType string, appt *Appointment, extra map[string]any) {
	payload := map[string]any{
		"event_type":     eventType,
		"appointment_id": appt.ID.String(),
		"resource_id":    appt.ResourceID.String(),
		"status":         string(appt.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appt.ID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appt.ID, err)
	}

	if s.events != nil && data != nil {
		if err := s.events.Publish(ctx, data); err != nil {
			log.Printf("failed to publish event %s for appointment %s: %v", eventType, appt.ID, err)
		}
	}
}
