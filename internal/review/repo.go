package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrDuplicate      = errors.New("review already exists for this appointment")
)

// Stats is the aggregate over a doctor's approved reviews.
type Stats struct {
	Count   int
	Average float64 // mean rating, 0 when Count is 0
}

// Repository covers review rows plus the doctor rating columns the
// aggregator maintains. Methods honor an open transaction in ctx.
type Repository interface {
	Insert(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Review, error)

	// ApprovedStats computes count and mean over approved reviews.
	ApprovedStats(ctx context.Context, doctorID uuid.UUID) (Stats, error)
	// LockDoctor takes a row lock on the doctor profile so concurrent
	// recomputes serialize.
	LockDoctor(ctx context.Context, doctorID uuid.UUID) error
	UpdateDoctorRating(ctx context.Context, doctorID uuid.UUID, rating float64, total int) error
}
