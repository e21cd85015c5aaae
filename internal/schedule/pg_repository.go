package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	var specialty *string

	err := row.Scan(
		&res.ID,
		&res.Name,
		&specialty,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	res.Specialty = specialty
	return &res, nil
}

func scanEntry(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end time.Time
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.ResourceID,
		&a.PatientRef,
		&a.Kind,
		&start,
		&end,
		&a.Status,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Slot = SlotFromTimes(start, end)
	a.Notes = notes
	return &a, nil
}

const entryColumns = `id, resource_id, patient_ref, kind, start_time, end_time, status, notes, created_at, updated_at`

func collectEntries(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) CreateResource(ctx context.Context, name string, specialty *string) (*Resource, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO resources (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, specialty, created_at, updated_at
	`, id, name, specialty)
	return scanResource(row)
}

func (r *PgRepository) GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM resources
		WHERE id = $1
	`, id)
	return scanResource(row)
}

func (r *PgRepository) UpdateResource(ctx context.Context, id uuid.UUID, name string, specialty *string) (*Resource, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE resources
		SET name = $2,
		    specialty = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, specialty, created_at, updated_at
	`, id, name, specialty)
	return scanResource(row)
}

func (r *PgRepository) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM resources
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_entries (id, resource_id, patient_ref, kind, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+entryColumns+`
	`, id, a.ResourceID, a.PatientRef, a.Kind, a.Slot.StartTime(), a.Slot.EndTime(), a.Status, a.Notes)

	return scanEntry(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE id = $1
	`, id)
	return scanEntry(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE schedule_entries
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+entryColumns+`
	`, id, to, from)

	return scanEntry(row)
}

func (r *PgRepository) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, from Status, slot TimeSlot) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE schedule_entries
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+entryColumns+`
	`, id, slot.StartTime(), slot.EndTime(), from)

	return scanEntry(row)
}

func (r *PgRepository) ListActiveByResourceDay(ctx context.Context, resourceID uuid.UUID, day time.Time) ([]Appointment, error) {
	dayStart := DayOf(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE resource_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND status <> 'cancelled'
		ORDER BY start_time, id
	`, resourceID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

func (r *PgRepository) ListByResourceRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time, includeCancelled bool) ([]Appointment, error) {
	fromDay := DayOf(from)
	toDay := DayOf(to).AddDate(0, 0, 1)

	query := `
		SELECT ` + entryColumns + `
		FROM schedule_entries
		WHERE resource_id = $1
		  AND start_time >= $2
		  AND start_time < $3
	`
	if !includeCancelled {
		query += ` AND status <> 'cancelled'`
	}
	query += ` ORDER BY start_time, id`

	rows, err := r.pool.Query(ctx, query, resourceID, fromDay, toDay)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE patient_ref = $1
		ORDER BY start_time, id
		LIMIT $2 OFFSET $3
	`, patientRef, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE kind = 'appointment'
		  AND status IN ('scheduled', 'confirmed')
		  AND end_time < $1
		ORDER BY start_time, id
	`, before)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

func (r *PgRepository) InsertExamResult(ctx context.Context, e ExamResult) (*ExamResult, error) {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO exam_results (id, patient_ref, resource_id, recorded_at, summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, patient_ref, resource_id, recorded_at, summary
	`, id, e.PatientRef, e.ResourceID, recordedAt, e.Summary)

	var out ExamResult
	if err := row.Scan(&out.ID, &out.PatientRef, &out.ResourceID, &out.RecordedAt, &out.Summary); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) ListExamResultsByPatient(ctx context.Context, patientRef string) ([]ExamResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_ref, resource_id, recorded_at, summary
		FROM exam_results
		WHERE patient_ref = $1
		ORDER BY recorded_at, id
	`, patientRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ExamResult
	for rows.Next() {
		var e ExamResult
		if err := rows.Scan(&e.ID, &e.PatientRef, &e.ResourceID, &e.RecordedAt, &e.Summary); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertNote(ctx context.Context, n TimelineNote) (*TimelineNote, error) {
	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO timeline_notes (id, patient_ref, author, created_at, body)
		VALUES ($1, $2, $3, COALESCE($4, now()), $5)
		RETURNING id, patient_ref, author, created_at, body
	`, id, n.PatientRef, n.Author, nullableTime(n.CreatedAt), n.Body)

	var out TimelineNote
	if err := row.Scan(&out.ID, &out.PatientRef, &out.Author, &out.CreatedAt, &out.Body); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) ListNotesByPatient(ctx context.Context, patientRef string) ([]TimelineNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_ref, author, created_at, body
		FROM timeline_notes
		WHERE patient_ref = $1
		ORDER BY created_at, id
	`, patientRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineNote
	for rows.Next() {
		var n TimelineNote
		if err := rows.Scan(&n.ID, &n.PatientRef, &n.Author, &n.CreatedAt, &n.Body); err != nil {
			return nil, err
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
