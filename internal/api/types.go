package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/schedule"
)

// SlotPayload is the wire form of a TimeSlot: a calendar date, an HH:MM
// start and a minute duration.
type SlotPayload struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (p SlotPayload) ToSlot() (schedule.TimeSlot, error) {
	day, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return schedule.TimeSlot{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}

	start, err := parseMinute(p.Start)
	if err != nil {
		return schedule.TimeSlot{}, err
	}

	slot := schedule.NewTimeSlot(day, start, p.DurationMinutes)
	if err := slot.Validate(); err != nil {
		return schedule.TimeSlot{}, err
	}
	return slot, nil
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("start must be HH:MM: %w", err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func slotPayload(s schedule.TimeSlot) SlotPayload {
	return SlotPayload{
		Date:            s.Day.Format("2006-01-02"),
		Start:           fmt.Sprintf("%02d:%02d", s.Start/60, s.Start%60),
		DurationMinutes: s.Duration,
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) (map[time.Weekday]bool, error) {
	out := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out[wd] = true
	}
	return out, nil
}

type CreateResourceRequest struct {
	Name      string  `json:"name"`
	Specialty *string `json:"specialty,omitempty"`
}

type ResourceResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

func resourceResponse(r *schedule.Resource) ResourceResponse {
	return ResourceResponse{ID: r.ID, Name: r.Name, Specialty: r.Specialty}
}

type CreateAppointmentRequest struct {
	ResourceID string      `json:"resource_id"`
	PatientRef string      `json:"patient_ref"`
	Slot       SlotPayload `json:"slot"`
	Notes      *string     `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID         uuid.UUID   `json:"id"`
	ResourceID uuid.UUID   `json:"resource_id"`
	PatientRef string      `json:"patient_ref,omitempty"`
	Kind       string      `json:"kind"`
	Slot       SlotPayload `json:"slot"`
	Status     string      `json:"status"`
	Notes      *string     `json:"notes,omitempty"`
}

func appointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		ResourceID: a.ResourceID,
		PatientRef: a.PatientRef,
		Kind:       string(a.Kind),
		Slot:       slotPayload(a.Slot),
		Status:     string(a.Status),
		Notes:      a.Notes,
	}
}

type CreateBlockRequest struct {
	ResourceID string      `json:"resource_id"`
	Slot       SlotPayload `json:"slot"`
	Reason     string      `json:"reason,omitempty"`
}

type RecurringSeriesRequest struct {
	ResourceID      string   `json:"resource_id"`
	PatientRef      string   `json:"patient_ref,omitempty"`
	Weekdays        []string `json:"weekdays"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	Start           string   `json:"start"`
	DurationMinutes int      `json:"duration_minutes"`
	Notes           *string  `json:"notes,omitempty"`
	AllOrNothing    bool     `json:"all_or_nothing,omitempty"`
}

type SkippedOccurrenceResponse struct {
	Slot          SlotPayload `json:"slot"`
	ConflictingID uuid.UUID   `json:"conflicting_id"`
}

type SeriesResponse struct {
	Booked  []AppointmentResponse       `json:"booked"`
	Skipped []SkippedOccurrenceResponse `json:"skipped,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type RescheduleRequest struct {
	Slot SlotPayload `json:"slot"`
}

type AgendaDayResponse struct {
	Date    string                `json:"date"`
	Entries []AppointmentResponse `json:"entries"`
}

type AgendaResponse struct {
	View string              `json:"view"`
	From string              `json:"from"`
	To   string              `json:"to"`
	Days []AgendaDayResponse `json:"days"`
}

type TimelineEntryResponse struct {
	Kind        string               `json:"kind"`
	OccurredAt  time.Time            `json:"occurred_at"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
	Exam        *ExamResultResponse  `json:"exam,omitempty"`
	Note        *NoteResponse        `json:"note,omitempty"`
}

type ExamResultResponse struct {
	ID         uuid.UUID `json:"id"`
	ResourceID uuid.UUID `json:"resource_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Summary    string    `json:"summary"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Body      string    `json:"body"`
}

type AddExamResultRequest struct {
	ResourceID string    `json:"resource_id"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
	Summary    string    `json:"summary"`
}

type AddNoteRequest struct {
	Author string `json:"author,omitempty"`
	Body   string `json:"body"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	ConflictingID string `json:"conflicting_id,omitempty"`
}
