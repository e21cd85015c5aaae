package schedule

import (
	"sort"
	"time"
)

type TimelineKind string

const (
	TimelineAppointment TimelineKind = "appointment"
	TimelineExam        TimelineKind = "exam"
	TimelineNoteEntry   TimelineKind = "note"
)

// TimelineEntry is a tagged union over the things that can appear on a
// patient's history. Kind is the discriminant; exactly one of the
// pointers is set.
type TimelineEntry struct {
	Kind        TimelineKind
	OccurredAt  time.Time
	Appointment *Appointment
	Exam        *ExamResult
	Note        *TimelineNote
}

// BuildTimeline merges appointments, exam results and notes into one
// chronological sequence, oldest first.
func BuildTimeline(appts []Appointment, exams []ExamResult, notes []TimelineNote) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(appts)+len(exams)+len(notes))

	for i := range appts {
		a := appts[i]
		out = append(out, TimelineEntry{
			Kind:        TimelineAppointment,
			OccurredAt:  a.Slot.StartTime(),
			Appointment: &a,
		})
	}
	for i := range exams {
		e := exams[i]
		out = append(out, TimelineEntry{
			Kind:       TimelineExam,
			OccurredAt: e.RecordedAt,
			Exam:       &e,
		})
	}
	for i := range notes {
		n := notes[i]
		out = append(out, TimelineEntry{
			Kind:       TimelineNoteEntry,
			OccurredAt: n.CreatedAt,
			Note:       &n,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})

	return out
}
