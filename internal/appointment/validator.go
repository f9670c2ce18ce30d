package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/doctor"
)

// ConflictValidator runs the booking rules against current state. It is
// called inside the booking transaction, so its reads and the insert
// they protect see the same snapshot.
type ConflictValidator struct {
	repo     Repository
	statuses *StatusRegistry
	dailyCap int
}

func NewConflictValidator(repo Repository, statuses *StatusRegistry, dailyCap int) *ConflictValidator {
	return &ConflictValidator{repo: repo, statuses: statuses, dailyCap: dailyCap}
}

// Validate checks the slot in a fixed order: doctor double-booking,
// patient duplicate on the same slot, then the patient's daily cap.
// The first violated rule wins.
func (v *ConflictValidator) Validate(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay) error {
	active := v.statuses.ActiveNames()

	taken, err := v.repo.ExistsActiveAt(ctx, doctorID, date, t, active)
	if err != nil {
		return fmt.Errorf("check doctor slot: %w", err)
	}
	if taken {
		return &ConflictError{
			Kind:    KindDoctorConflict,
			Field:   "appointment_time",
			Message: "This time slot is already booked. Please choose another time.",
		}
	}

	dup, err := v.repo.ExistsActiveForPatientAt(ctx, patientID, doctorID, date, t, active)
	if err != nil {
		return fmt.Errorf("check patient slot: %w", err)
	}
	if dup {
		return &ConflictError{
			Kind:    KindPatientConflict,
			Field:   "appointment_time",
			Message: "You already have an appointment at this time.",
		}
	}

	count, err := v.repo.CountActiveOnDate(ctx, patientID, date, active)
	if err != nil {
		return fmt.Errorf("count daily appointments: %w", err)
	}
	if count >= v.dailyCap {
		return &ConflictError{
			Kind:    KindDailyCapExceeded,
			Field:   "appointment_date",
			Message: fmt.Sprintf("You cannot book more than %d appointments per day.", v.dailyCap),
		}
	}

	return nil
}
