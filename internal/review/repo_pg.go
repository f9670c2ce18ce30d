package review

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heydoc/scheduling/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) q(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reviewCols = `id, doctor_id, patient_id, appointment_id, rating, comment,
	is_approved, created_at, updated_at`

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID,
		&rv.DoctorID,
		&rv.PatientID,
		&rv.AppointmentID,
		&rv.Rating,
		&rv.Comment,
		&rv.IsApproved,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *PgRepository) Insert(ctx context.Context, rv *Review) error {
	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO reviews (id, doctor_id, patient_id, appointment_id, rating, comment,
			is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, rv.ID, rv.DoctorID, rv.PatientID, rv.AppointmentID, rv.Rating, rv.Comment,
		rv.IsApproved,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if constraint := db.UniqueConstraint(err); strings.Contains(constraint, "reviews") {
		return ErrDuplicate
	}
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+reviewCols+` FROM reviews WHERE id = $1
	`, id)
	return scanReview(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *PgRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Review, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+reviewCols+` FROM reviews
		WHERE doctor_id = $1 AND is_approved
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rv)
	}
	return result, rows.Err()
}

func (r *PgRepository) ApprovedStats(ctx context.Context, doctorID uuid.UUID) (Stats, error) {
	var s Stats
	err := r.q(ctx).QueryRow(ctx, `
		SELECT count(*), coalesce(avg(rating), 0)
		FROM reviews
		WHERE doctor_id = $1 AND is_approved
	`, doctorID).Scan(&s.Count, &s.Average)
	return s, err
}

func (r *PgRepository) LockDoctor(ctx context.Context, doctorID uuid.UUID) error {
	var id uuid.UUID
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id FROM doctor_profiles WHERE id = $1 FOR UPDATE
	`, doctorID).Scan(&id)
	return err
}

func (r *PgRepository) UpdateDoctorRating(ctx context.Context, doctorID uuid.UUID, rating float64, total int) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE doctor_profiles
		SET rating = $1, total_reviews = $2, updated_at = now()
		WHERE id = $3
	`, rating, total, doctorID)
	return err
}
