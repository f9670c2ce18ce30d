package appointment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/doctor"
	"github.com/heydoc/scheduling/internal/notify"
	redisclient "github.com/heydoc/scheduling/internal/redis"
)

// BookRequest carries everything a patient submits to book a slot.
type BookRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ClinicID  *uuid.UUID
	Date      time.Time
	Time      doctor.TimeOfDay
	Duration  int
	Symptoms  string
	Notes     string
}

// BookingService books appointments atomically. A Redis slot lock keeps
// concurrent requests for the same slot from piling into the database;
// a serializable transaction plus the partial unique index make the
// database the final arbiter either way.
type BookingService struct {
	repo      Repository
	doctors   doctor.Repository
	validator *ConflictValidator
	statuses  *StatusRegistry
	locker    redisclient.Locker
	tx        db.Runner
	clock     clock.Clock
	notifier  notify.Notifier
	log       zerolog.Logger
	attempts  int
}

func NewBookingService(
	repo Repository,
	doctors doctor.Repository,
	validator *ConflictValidator,
	statuses *StatusRegistry,
	locker redisclient.Locker,
	tx db.Runner,
	clk clock.Clock,
	notifier notify.Notifier,
	log zerolog.Logger,
	attempts int,
) *BookingService {
	if attempts < 1 {
		attempts = 1
	}
	return &BookingService{
		repo:      repo,
		doctors:   doctors,
		validator: validator,
		statuses:  statuses,
		locker:    locker,
		tx:        tx,
		clock:     clk,
		notifier:  notifier,
		log:       log,
		attempts:  attempts,
	}
}

// GenerateBookingID produces a human-readable booking reference like
// HEY3F2A91BC.
func GenerateBookingID() string {
	id := uuid.New()
	return "HEY" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// Book validates and creates one appointment. Validation conflicts come
// back as *ConflictError; lost races against concurrent bookings of the
// same slot are reported the same way.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	today := dateOnly(s.clock.Now())
	if dateOnly(req.Date).Before(today) {
		return nil, &ConflictError{
			Kind:    KindPastDate,
			Field:   "appointment_date",
			Message: "Cannot book appointments in the past.",
		}
	}

	doc, err := s.doctors.GetProfileByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doc.CanBeBooked() {
		return nil, &ConflictError{
			Kind:    KindDoctorConflict,
			Field:   "non_field_errors",
			Message: "This doctor is not accepting appointments right now.",
		}
	}

	appt := &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ClinicID:        req.ClinicID,
		Date:            dateOnly(req.Date),
		Time:            req.Time,
		Duration:        req.Duration,
		ConsultationFee: doc.ConsultationFee,
		Symptoms:        req.Symptoms,
		Notes:           req.Notes,
		PaymentStatus:   PaymentPending,
	}
	if appt.Duration <= 0 {
		appt.Duration = 30
	}

	key := redisclient.SlotLockKey(req.DoctorID, appt.Date.Format("2006-01-02"), req.Time.String())
	err = s.locker.WithSlotLock(ctx, key, func(ctx context.Context) error {
		return s.bookLocked(ctx, appt)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, slotContended()
		}
		return nil, err
	}

	s.log.Info().
		Str("booking_id", appt.BookingID).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.Date.Format("2006-01-02")).
		Str("time", appt.Time.String()).
		Msg("appointment booked")

	e := notify.Event{
		Kind:          notify.EventBooked,
		AppointmentID: appt.ID,
		BookingID:     appt.BookingID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Message:       fmt.Sprintf("Appointment %s booked for %s %s", appt.BookingID, appt.Date.Format("2006-01-02"), appt.Time),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.notifier.Notify(ctx, e)
	}()
	return appt, nil
}

// bookLocked runs the validate-then-insert transaction, regenerating the
// booking ID on the unlikely reference collision. The whole transaction
// retries because an aborted one cannot be resumed.
func (s *BookingService) bookLocked(ctx context.Context, appt *Appointment) error {
	var lastErr error
	for i := 0; i < s.attempts; i++ {
		appt.BookingID = GenerateBookingID()

		err := s.tx.Serializable(ctx, func(ctx context.Context) error {
			if err := s.validator.Validate(ctx, appt.PatientID, appt.DoctorID, appt.Date, appt.Time); err != nil {
				return err
			}
			status, err := s.scheduledStatus(ctx)
			if err != nil {
				return err
			}
			appt.StatusID = status.ID
			appt.Status = status.Name
			return s.repo.Insert(ctx, appt)
		})
		if err == nil {
			return nil
		}

		switch constraint := db.UniqueConstraint(err); {
		case strings.Contains(constraint, "booking_id"):
			lastErr = err
			continue
		case constraint != "" || db.IsSerializationFailure(err):
			// Another transaction claimed the slot first.
			return slotContended()
		default:
			return err
		}
	}
	return fmt.Errorf("generate unique booking id after %d attempts: %w", s.attempts, lastErr)
}

// scheduledStatus resolves the initial status, creating the row if the
// statuses table was never seeded.
func (s *BookingService) scheduledStatus(ctx context.Context) (*Status, error) {
	if cached, ok := s.statuses.Get(StatusScheduled); ok {
		return &cached, nil
	}
	status, err := s.repo.GetStatusByName(ctx, StatusScheduled)
	if errors.Is(err, ErrStatusNotFound) {
		// Lazily created inside the booking transaction. Not cached
		// here: the transaction may still abort, and a rolled-back ID
		// must not outlive it.
		status = &Status{
			Name:        StatusScheduled,
			Description: "Appointment scheduled",
			Class:       ClassActive,
		}
		if err := s.repo.CreateStatus(ctx, status); err != nil {
			return nil, err
		}
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	s.statuses.Put(*status)
	return status, nil
}

func slotContended() *ConflictError {
	return &ConflictError{
		Kind:    KindDoctorConflict,
		Field:   "appointment_time",
		Message: "This time slot was just booked. Please choose another time.",
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
