package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process store. Appointments are indexed by
// resource then day so conflict lookups touch only one day's entries.
// All query results are copies; mutating them never reaches the index.
type MemoryRepository struct {
	mu            sync.RWMutex
	resources     map[uuid.UUID]Resource
	appointments  map[uuid.UUID]Appointment
	byResourceDay map[uuid.UUID]map[time.Time][]uuid.UUID
	exams         map[string][]ExamResult
	notes         map[string][]TimelineNote
	events        []EventLog
	nextEventID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		resources:     make(map[uuid.UUID]Resource),
		appointments:  make(map[uuid.UUID]Appointment),
		byResourceDay: make(map[uuid.UUID]map[time.Time][]uuid.UUID),
		exams:         make(map[string][]ExamResult),
		notes:         make(map[string][]TimelineNote),
	}
}

func (r *MemoryRepository) CreateResource(ctx context.Context, name string, specialty *string) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	res := Resource{
		ID:        uuid.New(),
		Name:      name,
		Specialty: specialty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.resources[res.ID] = res
	out := res
	return &out, nil
}

func (r *MemoryRepository) GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	out := res
	return &out, nil
}

func (r *MemoryRepository) UpdateResource(ctx context.Context, id uuid.UUID, name string, specialty *string) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	res.Name = name
	res.Specialty = specialty
	res.UpdatedAt = time.Now().UTC()
	r.resources[id] = res
	out := res
	return &out, nil
}

func (r *MemoryRepository) ListResources(ctx context.Context) ([]Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.appointments[a.ID] = a
	r.indexLocked(a)

	out := a
	return &out, nil
}

func (r *MemoryRepository) indexLocked(a Appointment) {
	days, ok := r.byResourceDay[a.ResourceID]
	if !ok {
		days = make(map[time.Time][]uuid.UUID)
		r.byResourceDay[a.ResourceID] = days
	}
	days[a.Slot.Day] = append(days[a.Slot.Day], a.ID)
}

func (r *MemoryRepository) unindexLocked(a Appointment) {
	days, ok := r.byResourceDay[a.ResourceID]
	if !ok {
		return
	}
	ids := days[a.Slot.Day]
	for i, id := range ids {
		if id == a.ID {
			days[a.Slot.Day] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := a
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	r.appointments[id] = a
	out := a
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, from Status, slot TimeSlot) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	r.unindexLocked(a)
	a.Slot = slot
	a.UpdatedAt = time.Now().UTC()
	r.appointments[id] = a
	r.indexLocked(a)
	out := a
	return &out, nil
}

func (r *MemoryRepository) ListActiveByResourceDay(ctx context.Context, resourceID uuid.UUID, day time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, id := range r.byResourceDay[resourceID][DayOf(day)] {
		a := r.appointments[id]
		if a.Active() {
			out = append(out, a)
		}
	}
	sortBySlot(out)
	return out, nil
}

func (r *MemoryRepository) ListByResourceRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time, includeCancelled bool) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromDay := DayOf(from)
	toDay := DayOf(to)

	var out []Appointment
	for day, ids := range r.byResourceDay[resourceID] {
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		for _, id := range ids {
			a := r.appointments[id]
			if !includeCancelled && !a.Active() {
				continue
			}
			out = append(out, a)
		}
	}
	sortBySlot(out)
	return out, nil
}

func (r *MemoryRepository) ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Appointment
	for _, a := range r.appointments {
		if a.PatientRef == patientRef {
			all = append(all, a)
		}
	}
	sortBySlot(all)

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if a.Kind != KindAppointment {
			continue
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		if a.Slot.EndTime().Before(before) {
			out = append(out, a)
		}
	}
	sortBySlot(out)
	return out, nil
}

func (r *MemoryRepository) InsertExamResult(ctx context.Context, e ExamResult) (*ExamResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	r.exams[e.PatientRef] = append(r.exams[e.PatientRef], e)
	out := e
	return &out, nil
}

func (r *MemoryRepository) ListExamResultsByPatient(ctx context.Context, patientRef string) ([]ExamResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ExamResult, len(r.exams[patientRef]))
	copy(out, r.exams[patientRef])
	return out, nil
}

func (r *MemoryRepository) InsertNote(ctx context.Context, n TimelineNote) (*TimelineNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.notes[n.PatientRef] = append(r.notes[n.PatientRef], n)
	out := n
	return &out, nil
}

func (r *MemoryRepository) ListNotesByPatient(ctx context.Context, patientRef string) ([]TimelineNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TimelineNote, len(r.notes[patientRef]))
	copy(out, r.notes[patientRef])
	return out, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of the event log, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func sortBySlot(entries []Appointment) {
	sort.Slice(entries, func(i, j int) bool {
		si, sj := entries[i].Slot, entries[j].Slot
		if !si.Day.Equal(sj.Day) {
			return si.Day.Before(sj.Day)
		}
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
}
