package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/heydoc/scheduling/internal/appointment"
	"github.com/heydoc/scheduling/internal/auth"
	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/doctor"
	"github.com/heydoc/scheduling/internal/review"
)

// Narrow service interfaces so handlers can be tested against fakes.

type Booker interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
}

type Transitioner interface {
	Confirm(ctx context.Context, id, actor uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id, actor uuid.UUID, reason string) (*appointment.Appointment, error)
	Complete(ctx context.Context, id, actor uuid.UUID, req appointment.CompleteRequest) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, id, actor uuid.UUID) (*appointment.Appointment, error)
}

type AppointmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*appointment.Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, f appointment.ListFilter) ([]appointment.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, f appointment.ListFilter) ([]appointment.Appointment, error)
	HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]appointment.History, error)
}

type SlotReader interface {
	DaySheet(ctx context.Context, doctorID uuid.UUID, date time.Time) (*doctor.DaySheet, error)
}

type ReviewService interface {
	Create(ctx context.Context, req review.CreateRequest) (*review.Review, error)
	Delete(ctx context.Context, id, patientID uuid.UUID) error
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]review.Review, error)
}

type RouterConfig struct {
	Booking      Booker
	Transitions  Transitioner
	Appointments AppointmentReader
	Slots        SlotReader
	Reviews      ReviewService
	Clock        clock.Clock
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	JWTSecret    string
	Env          string
	Version      string
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Booking))
			r.Get("/", listAppointmentsHandler(cfg.Appointments))
			r.Get("/available-slots", availableSlotsHandler(cfg.Slots, cfg.Clock))
			r.Get("/check-date-availability", checkDateAvailabilityHandler(cfg.Slots, cfg.Clock))
			r.Get("/by-booking/{bookingID}", getAppointmentByBookingIDHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Get("/{id}/history", appointmentHistoryHandler(cfg.Appointments))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Transitions, cfg.Appointments))
			r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Transitions, cfg.Appointments))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Transitions, cfg.Appointments))
			r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Transitions, cfg.Appointments))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", createReviewHandler(cfg.Reviews))
			r.Get("/", listReviewsHandler(cfg.Reviews))
			r.Delete("/{id}", deleteReviewHandler(cfg.Reviews))
		})
	})

	return r
}
