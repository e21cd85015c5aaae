package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/schedule"
)

func createResourceHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
			return
		}

		res, err := repo.CreateResource(r.Context(), req.Name, req.Specialty)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, resourceResponse(res))
	}
}

func listResourcesHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resources, err := repo.ListResources(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]ResourceResponse, 0, len(resources))
		for i := range resources {
			out = append(out, resourceResponse(&resources[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getResourceHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "id must be a valid UUID")
			return
		}

		res, err := repo.GetResourceByID(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resourceResponse(res))
	}
}

// updateResourceHandler changes display metadata only; the resource id
// stays stable for all existing appointments.
func updateResourceHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "id must be a valid UUID")
			return
		}

		var req CreateResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
			return
		}

		res, err := repo.UpdateResource(r.Context(), id, req.Name, req.Specialty)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resourceResponse(res))
	}
}

func createAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resourceID, err := uuid.Parse(req.ResourceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}

		slot, err := req.Slot.ToSlot()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), schedule.BookingRequest{
			ResourceID: resourceID,
			PatientRef: req.PatientRef,
			Slot:       slot,
			Notes:      req.Notes,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func updateStatusHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, schedule.Status(req.Status))
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func rescheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := req.Slot.ToSlot()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, slot)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func createBlockHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resourceID, err := uuid.Parse(req.ResourceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}

		slot, err := req.Slot.ToSlot()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
			return
		}

		block, err := svc.PlaceBlock(r.Context(), resourceID, slot, req.Reason)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(block))
	}
}

func recurringSeriesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecurringSeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resourceID, err := uuid.Parse(req.ResourceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}

		weekdays, err := parseWeekdays(req.Weekdays)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_rule", err.Error())
			return
		}

		startDay, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_rule", "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_rule", "end_date must be YYYY-MM-DD")
			return
		}
		startMinute, err := parseMinute(req.Start)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
			return
		}

		result, err := svc.BookSeries(r.Context(), schedule.SeriesRequest{
			ResourceID:   resourceID,
			PatientRef:   req.PatientRef,
			Rule:         schedule.RecurrenceRule{Weekdays: weekdays, EndDate: endDate},
			StartDay:     startDay,
			StartMinute:  startMinute,
			Duration:     req.DurationMinutes,
			Notes:        req.Notes,
			AllOrNothing: req.AllOrNothing,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, seriesResponse(result))
	}
}

func seriesResponse(result *schedule.SeriesResult) SeriesResponse {
	resp := SeriesResponse{Booked: make([]AppointmentResponse, 0, len(result.Booked))}
	for i := range result.Booked {
		resp.Booked = append(resp.Booked, appointmentResponse(&result.Booked[i]))
	}
	for _, skipped := range result.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedOccurrenceResponse{
			Slot:          slotPayload(skipped.Slot),
			ConflictingID: skipped.ConflictingID,
		})
	}
	return resp
}

func agendaHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := schedule.ParseGridView(r.URL.Query().Get("view"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_view", "view must be day, week or month")
			return
		}

		anchor, err := time.Parse("2006-01-02", r.URL.Query().Get("anchor"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_anchor", "anchor must be YYYY-MM-DD")
			return
		}

		rawIDs := r.URL.Query().Get("resource_id")
		if rawIDs == "" {
			writeError(w, http.StatusBadRequest, "missing_resource_id", "at least one resource_id is required")
			return
		}

		var resourceIDs []uuid.UUID
		for _, raw := range strings.Split(rawIDs, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a comma separated list of UUIDs")
				return
			}
			resourceIDs = append(resourceIDs, id)
		}

		grid, err := svc.Agenda(r.Context(), view, anchor, resourceIDs)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := AgendaResponse{
			View: string(grid.View),
			From: grid.From.Format("2006-01-02"),
			To:   grid.To.Format("2006-01-02"),
		}
		for _, day := range grid.Days {
			entries := make([]AppointmentResponse, 0, len(day.Entries))
			for i := range day.Entries {
				entries = append(entries, appointmentResponse(&day.Entries[i]))
			}
			resp.Days = append(resp.Days, AgendaDayResponse{
				Date:    day.Day.Format("2006-01-02"),
				Entries: entries,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func addExamResultHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddExamResultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resourceID, err := uuid.Parse(req.ResourceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}
		if req.Summary == "" {
			writeError(w, http.StatusBadRequest, "invalid_summary", "summary is required")
			return
		}

		exam, err := svc.AddExamResult(r.Context(), schedule.ExamResult{
			PatientRef: chi.URLParam(r, "ref"),
			ResourceID: resourceID,
			RecordedAt: req.RecordedAt,
			Summary:    req.Summary,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ExamResultResponse{
			ID:         exam.ID,
			ResourceID: exam.ResourceID,
			RecordedAt: exam.RecordedAt,
			Summary:    exam.Summary,
		})
	}
}

func addNoteHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Body == "" {
			writeError(w, http.StatusBadRequest, "invalid_body", "body is required")
			return
		}

		note, err := svc.AddNote(r.Context(), schedule.TimelineNote{
			PatientRef: chi.URLParam(r, "ref"),
			Author:     req.Author,
			Body:       req.Body,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, NoteResponse{
			ID:        note.ID,
			Author:    note.Author,
			CreatedAt: note.CreatedAt,
			Body:      note.Body,
		})
	}
}

func patientTimelineHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientRef := chi.URLParam(r, "ref")
		if patientRef == "" {
			writeError(w, http.StatusBadRequest, "invalid_patient_ref", "patient ref is required")
			return
		}

		entries, err := svc.PatientTimeline(r.Context(), patientRef)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]TimelineEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp := TimelineEntryResponse{
				Kind:       string(e.Kind),
				OccurredAt: e.OccurredAt,
			}
			switch e.Kind {
			case schedule.TimelineAppointment:
				a := appointmentResponse(e.Appointment)
				resp.Appointment = &a
			case schedule.TimelineExam:
				resp.Exam = &ExamResultResponse{
					ID:         e.Exam.ID,
					ResourceID: e.Exam.ResourceID,
					RecordedAt: e.Exam.RecordedAt,
					Summary:    e.Exam.Summary,
				}
			case schedule.TimelineNoteEntry:
				resp.Note = &NoteResponse{
					ID:        e.Note.ID,
					Author:    e.Note.Author,
					CreatedAt: e.Note.CreatedAt,
					Body:      e.Note.Body,
				}
			}
			out = append(out, resp)
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var conflict *schedule.ConflictError
	var invalidRule *schedule.InvalidRuleError

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:         "slot_conflict",
			Details:       err.Error(),
			ConflictingID: conflict.ConflictingID.String(),
		})
	case errors.Is(err, schedule.ErrResourceBusy):
		writeError(w, http.StatusConflict, "resource_busy", "resource is currently being booked, please retry shortly")
	case errors.Is(err, schedule.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, "resource_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.As(err, &invalidRule):
		writeError(w, http.StatusUnprocessableEntity, "invalid_rule", err.Error())
	case errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrInvalidStart),
		errors.Is(err, schedule.ErrCrossesMidnight):
		writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
	case errors.Is(err, schedule.ErrMissingPatientRef):
		writeError(w, http.StatusBadRequest, "missing_patient_ref", err.Error())
	case errors.Is(err, schedule.ErrUnknownStatus):
		writeError(w, http.StatusUnprocessableEntity, "unknown_status", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
