package doctor

import (
	"context"
	"errors"
	"time"

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

// q returns the in-flight transaction when the caller opened one, the
// pool otherwise.
func (r *PgRepository) q(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Helpers

func scanProfile(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DisplayName,
		&d.Specialty,
		&d.ConsultationFee,
		&d.Rating,
		&d.TotalReviews,
		&d.IsVerified,
		&d.IsAvailable,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

const profileCols = `id, user_id, display_name, specialty, consultation_fee,
	rating, total_reviews, is_verified, is_available, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetProfileByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+profileCols+`
		FROM doctor_profiles
		WHERE id = $1
	`, id)
	return scanProfile(row)
}

func (r *PgRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+profileCols+`
		FROM doctor_profiles
		WHERE user_id = $1
	`, userID)
	return scanProfile(row)
}

func (r *PgRepository) SchedulesFor(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Schedule, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, doctor_id, clinic_id, day_of_week, start_minute, end_minute,
		       slot_duration, is_active, created_at, updated_at
		FROM schedules
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active
		ORDER BY start_minute
	`, doctorID, int(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		var s Schedule
		var dow, startMin, endMin int
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.ClinicID, &dow, &startMin, &endMin,
			&s.SlotDuration, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.DayOfWeek = time.Weekday(dow)
		s.StartTime = TimeOfDay(startMin)
		s.EndTime = TimeOfDay(endMin)
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) UnavailabilityOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Unavailability, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, doctor_id, date, start_minute, end_minute, is_full_day, reason, created_at
		FROM unavailability
		WHERE doctor_id = $1 AND date = $2
		ORDER BY start_minute NULLS FIRST
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Unavailability
	for rows.Next() {
		var u Unavailability
		var startMin, endMin *int
		if err := rows.Scan(&u.ID, &u.DoctorID, &u.Date, &startMin, &endMin,
			&u.IsFullDay, &u.Reason, &u.CreatedAt); err != nil {
			return nil, err
		}
		if startMin != nil {
			t := TimeOfDay(*startMin)
			u.StartTime = &t
		}
		if endMin != nil {
			t := TimeOfDay(*endMin)
			u.EndTime = &t
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateProfile(ctx context.Context, p *DoctorProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO doctor_profiles (id, user_id, display_name, specialty, consultation_fee,
			rating, total_reviews, is_verified, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, p.ID, p.UserID, p.DisplayName, p.Specialty, p.ConsultationFee,
		p.Rating, p.TotalReviews, p.IsVerified, p.IsAvailable)
	return err
}

func (r *PgRepository) CreateClinic(ctx context.Context, c *Clinic) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO clinics (id, doctor_id, name, address, phone, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, c.ID, c.DoctorID, c.Name, c.Address, c.Phone, c.IsPrimary)
	return err
}

func (r *PgRepository) CreateSchedule(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO schedules (id, doctor_id, clinic_id, day_of_week, start_minute, end_minute,
			slot_duration, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, s.ID, s.DoctorID, s.ClinicID, int(s.DayOfWeek), s.StartTime.Minutes(), s.EndTime.Minutes(),
		s.SlotDuration, s.IsActive)
	return err
}

func (r *PgRepository) CreateUnavailability(ctx context.Context, u *Unavailability) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	var startMin, endMin *int
	if u.StartTime != nil {
		v := u.StartTime.Minutes()
		startMin = &v
	}
	if u.EndTime != nil {
		v := u.EndTime.Minutes()
		endMin = &v
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO unavailability (id, doctor_id, date, start_minute, end_minute, is_full_day, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, u.ID, u.DoctorID, u.Date, startMin, endMin, u.IsFullDay, u.Reason)
	return err
}
