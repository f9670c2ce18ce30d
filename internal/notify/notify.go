// Package notify delivers appointment notifications. The engine only
// needs a fire-and-forget sink; delivery channels beyond the log are a
// deployment concern.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event kinds emitted by the scheduling engine.
const (
	EventBooked    = "appointment.booked"
	EventConfirmed = "appointment.confirmed"
	EventCancelled = "appointment.cancelled"
	EventCompleted = "appointment.completed"
	EventNoShow    = "appointment.no_show"
	EventReminder  = "appointment.reminder"
)

// Event describes one notification to deliver.
type Event struct {
	Kind          string
	AppointmentID uuid.UUID
	BookingID     string
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Message       string
}

// Notifier delivers events. Implementations must not block the caller
// on slow channels; the engine treats delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) {
	n.log.Info().
		Str("event", e.Kind).
		Str("appointment_id", e.AppointmentID.String()).
		Str("booking_id", e.BookingID).
		Str("patient_id", e.PatientID.String()).
		Str("doctor_id", e.DoctorID.String()).
		Str("message", e.Message).
		Msg("notification")
}

// Discard drops every event, for tests and tools that do not care.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
