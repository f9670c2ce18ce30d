package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/doctor"
)

// Seed status names. The set of statuses lives in the database; these
// constants name the rows the system is seeded with.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// StatusClass classifies a status so membership checks don't depend on
// name lists scattered through the code.
type StatusClass string

const (
	ClassActive            StatusClass = "active"
	ClassTerminalCompleted StatusClass = "terminal_completed"
	ClassTerminalCancelled StatusClass = "terminal_cancelled"
)

// Status is immutable reference data describing one appointment state.
type Status struct {
	ID          uuid.UUID
	Name        string
	Description string
	Class       StatusClass
}

func (s *Status) IsActive() bool { return s.Class == ClassActive }

func (s *Status) IsTerminal() bool {
	return s.Class == ClassTerminalCompleted || s.Class == ClassTerminalCancelled
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment is a booked slot. Rows are never deleted; resolution is
// soft, through the status reference.
type Appointment struct {
	ID              uuid.UUID
	BookingID       string
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	ClinicID        *uuid.UUID
	Date            time.Time
	Time            doctor.TimeOfDay
	Duration        int // minutes
	StatusID        uuid.UUID
	Status          string // status name, joined on reads
	ConsultationFee float64
	Symptoms        string
	Notes           string
	Prescription    string
	FollowUpDate    *time.Time
	PaymentStatus   PaymentStatus
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StartAt combines the appointment date and start time.
func (a *Appointment) StartAt() time.Time {
	return a.Time.At(a.Date)
}

// History is one append-only record of a status transition.
type History struct {
	ID            int64
	AppointmentID uuid.UUID
	OldStatus     string
	NewStatus     string
	ChangedBy     uuid.UUID
	Reason        string
	CreatedAt     time.Time
}
