package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrClinicNotFound = errors.New("clinic not found")
)

// Repository contains the doctor-directory reads and writes used by the
// calendar, the booking flow, and the seed command.
type Repository interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)

	// Calendar inputs
	SchedulesFor(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Schedule, error)
	UnavailabilityOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Unavailability, error)

	// Provisioning
	CreateProfile(ctx context.Context, p *DoctorProfile) error
	CreateClinic(ctx context.Context, c *Clinic) error
	CreateSchedule(ctx context.Context, s *Schedule) error
	CreateUnavailability(ctx context.Context, u *Unavailability) error
}
