package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heydoc/scheduling/internal/db"
)

// ValidationError is a rejected review submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CreateRequest is one submitted review.
type CreateRequest struct {
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Rating        int
	Comment       string
}

// Service creates and removes reviews, keeping the doctor's aggregate
// rating in step within the same transaction.
type Service struct {
	repo       Repository
	aggregator *Aggregator
	tx         db.Runner
	log        zerolog.Logger
}

func NewService(repo Repository, aggregator *Aggregator, tx db.Runner, log zerolog.Logger) *Service {
	return &Service{repo: repo, aggregator: aggregator, tx: tx, log: log}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, &ValidationError{Field: "rating", Message: "Rating must be between 1 and 5."}
	}

	rv := &Review{
		DoctorID:      req.DoctorID,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Comment:       req.Comment,
		IsApproved:    true,
	}
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, rv); err != nil {
			return err
		}
		return s.aggregator.Recompute(ctx, rv.DoctorID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("review_id", rv.ID.String()).
		Str("doctor_id", rv.DoctorID.String()).
		Int("rating", rv.Rating).
		Msg("review created")
	return rv, nil
}

// Delete removes a review the patient owns and recomputes the rating.
func (s *Service) Delete(ctx context.Context, id, patientID uuid.UUID) error {
	return s.tx.Transact(ctx, func(ctx context.Context) error {
		rv, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rv.PatientID != patientID {
			return ErrReviewNotFound
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.aggregator.Recompute(ctx, rv.DoctorID)
	})
}

// ListForDoctor returns a doctor's approved reviews, newest first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Review, error) {
	return s.repo.ListForDoctor(ctx, doctorID, limit, offset)
}
