package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/agenda/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	Repo    schedule.Repository
	PgPool  *pgxpool.Pool // nil when running on the memory store
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Resource endpoints
	r.Post("/resources", createResourceHandler(cfg.Repo))
	r.Get("/resources", listResourcesHandler(cfg.Repo))
	r.Get("/resources/{id}", getResourceHandler(cfg.Repo))
	r.Put("/resources/{id}", updateResourceHandler(cfg.Repo))

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", updateStatusHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Service))

	// Blocked intervals
	r.Post("/blocks", createBlockHandler(cfg.Service))
	r.Post("/blocks/recurring", recurringSeriesHandler(cfg.Service))

	// Views and patient history
	r.Get("/agenda", agendaHandler(cfg.Service))
	r.Get("/patients/{ref}/timeline", patientTimelineHandler(cfg.Service))
	r.Post("/patients/{ref}/exams", addExamResultHandler(cfg.Service))
	r.Post("/patients/{ref}/notes", addNoteHandler(cfg.Service))

	return r
}
