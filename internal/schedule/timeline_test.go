package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTimelineMergesChronologically(t *testing.T) {
	resourceID := uuid.New()

	appts := []Appointment{
		{
			ID:         uuid.New(),
			ResourceID: resourceID,
			PatientRef: "p1",
			Kind:       KindAppointment,
			Slot:       NewTimeSlot(day("2025-01-28"), 9*60, 30),
			Status:     StatusCompleted,
		},
	}
	exams := []ExamResult{
		{
			ID:         uuid.New(),
			PatientRef: "p1",
			ResourceID: resourceID,
			RecordedAt: day("2025-01-28").Add(11 * time.Hour),
			Summary:    "ECG unremarkable",
		},
	}
	notes := []TimelineNote{
		{
			ID:         uuid.New(),
			PatientRef: "p1",
			Author:     "dr.reyes",
			CreatedAt:  day("2025-01-20").Add(9 * time.Hour),
			Body:       "follow-up in one week",
		},
	}

	entries := BuildTimeline(appts, exams, notes)
	require.Len(t, entries, 3)

	assert.Equal(t, TimelineNoteEntry, entries[0].Kind)
	assert.Equal(t, TimelineAppointment, entries[1].Kind)
	assert.Equal(t, TimelineExam, entries[2].Kind)

	// each entry carries exactly its own variant
	for _, e := range entries {
		switch e.Kind {
		case TimelineAppointment:
			assert.NotNil(t, e.Appointment)
			assert.Nil(t, e.Exam)
			assert.Nil(t, e.Note)
		case TimelineExam:
			assert.Nil(t, e.Appointment)
			assert.NotNil(t, e.Exam)
			assert.Nil(t, e.Note)
		case TimelineNoteEntry:
			assert.Nil(t, e.Appointment)
			assert.Nil(t, e.Exam)
			assert.NotNil(t, e.Note)
		default:
			t.Fatalf("unexpected timeline kind %q", e.Kind)
		}
	}
}

func TestBuildTimelineEmpty(t *testing.T) {
	entries := BuildTimeline(nil, nil, nil)
	assert.Empty(t, entries)
}

func TestBuildTimelineStableForEqualTimes(t *testing.T) {
	at := day("2025-01-28").Add(9 * time.Hour)

	appts := []Appointment{{
		ID:   uuid.New(),
		Kind: KindAppointment,
		Slot: NewTimeSlot(day("2025-01-28"), 9*60, 30),
	}}
	exams := []ExamResult{{ID: uuid.New(), RecordedAt: at}}

	entries := BuildTimeline(appts, exams, nil)
	require.Len(t, entries, 2)

	// ties keep input group order: appointments before exams
	assert.Equal(t, TimelineAppointment, entries[0].Kind)
	assert.Equal(t, TimelineExam, entries[1].Kind)
}
