package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/agenda/internal/db"
	"github.com/clinicore/agenda/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	resourceIDs, err := seedResources(context.Background(), pool, 40)
	if err != nil {
		log.Fatalf("seed resources: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, resourceIDs, 14); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedResources(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d resources", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO resources (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("resources seeded")
	return ids, nil
}

// seedAppointments fills each resource's next `days` calendar days with
// back-to-back 30 minute visits between 09:00 and 17:00. Slots are
// generated sequentially per resource so the non-overlap invariant
// holds by construction.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, resourceIDs []uuid.UUID, days int) error {
	log.Printf("seeding appointments for %d resources over %d days", len(resourceIDs), days)

	const slotMinutes = 30
	today := schedule.DayOf(time.Now())

	for _, resourceID := range resourceIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		inserted := 0
		for d := 0; d < days; d++ {
			day := today.AddDate(0, 0, d)
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}

			for start := 9 * 60; start+slotMinutes <= 17*60; start += slotMinutes {
				// leave roughly a third of the grid open for bookings
				if gofakeit.Number(0, 2) == 0 {
					continue
				}

				slot := schedule.TimeSlot{Day: day, Start: start, Duration: slotMinutes}
				patientRef := gofakeit.UUID()

				_, err := tx.Exec(ctx, `
					INSERT INTO schedule_entries (id, resource_id, patient_ref, kind, start_time, end_time, status, notes, created_at, updated_at)
					VALUES ($1, $2, $3, 'appointment', $4, $5, 'scheduled', NULL, now(), now())
				`, uuid.New(), resourceID, patientRef, slot.StartTime(), slot.EndTime())
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				inserted++
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("resource %s: %d appointments", resourceID, inserted)
	}

	log.Println("appointments seeded")
	return nil
}
