package appointment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/doctor"
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

const appointmentCols = `a.id, a.booking_id, a.patient_id, a.doctor_id, a.clinic_id,
	a.appointment_date, a.start_minute, a.duration, a.status_id, s.name,
	a.consultation_fee, a.symptoms, a.notes, a.prescription, a.follow_up_date,
	a.payment_status, a.reminder_sent_at, a.created_at, a.updated_at`

const appointmentFrom = `appointments a JOIN appointment_statuses s ON s.id = a.status_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMin int
	err := row.Scan(
		&a.ID,
		&a.BookingID,
		&a.PatientID,
		&a.DoctorID,
		&a.ClinicID,
		&a.Date,
		&startMin,
		&a.Duration,
		&a.StatusID,
		&a.Status,
		&a.ConsultationFee,
		&a.Symptoms,
		&a.Notes,
		&a.Prescription,
		&a.FollowUpDate,
		&a.PaymentStatus,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Time = doctor.TimeOfDay(startMin)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Status reference data

func (r *PgRepository) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, name, description, class
		FROM appointment_statuses
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Class); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetStatusByName(ctx context.Context, name string) (*Status, error) {
	var s Status
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, name, description, class
		FROM appointment_statuses
		WHERE name = $1
	`, name).Scan(&s.ID, &s.Name, &s.Description, &s.Class)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) CreateStatus(ctx context.Context, s *Status) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO appointment_statuses (id, name, description, class)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`, s.ID, s.Name, s.Description, s.Class)
	if err != nil {
		return err
	}
	// Another booking may have inserted the row first; read back the
	// canonical ID either way.
	stored, err := r.GetStatusByName(ctx, s.Name)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// Conflict reads

func (r *PgRepository) ExistsActiveAt(ctx context.Context, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, activeNames []string) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM `+appointmentFrom+`
			WHERE a.doctor_id = $1 AND a.appointment_date = $2
			  AND a.start_minute = $3 AND s.name = ANY($4)
		)
	`, doctorID, date, t.Minutes(), activeNames).Scan(&exists)
	return exists, err
}

func (r *PgRepository) ExistsActiveForPatientAt(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, activeNames []string) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM `+appointmentFrom+`
			WHERE a.patient_id = $1 AND a.doctor_id = $2 AND a.appointment_date = $3
			  AND a.start_minute = $4 AND s.name = ANY($5)
		)
	`, patientID, doctorID, date, t.Minutes(), activeNames).Scan(&exists)
	return exists, err
}

func (r *PgRepository) CountActiveOnDate(ctx context.Context, patientID uuid.UUID, date time.Time, activeNames []string) (int, error) {
	var count int
	err := r.q(ctx).QueryRow(ctx, `
		SELECT count(*) FROM `+appointmentFrom+`
		WHERE a.patient_id = $1 AND a.appointment_date = $2 AND s.name = ANY($3)
	`, patientID, date, activeNames).Scan(&count)
	return count, err
}

// Calendar input

func (r *PgRepository) ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time, activeNames []string) ([]doctor.TimeOfDay, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT a.start_minute FROM `+appointmentFrom+`
		WHERE a.doctor_id = $1 AND a.appointment_date = $2 AND s.name = ANY($3)
		ORDER BY a.start_minute
	`, doctorID, date, activeNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []doctor.TimeOfDay
	for rows.Next() {
		var min int
		if err := rows.Scan(&min); err != nil {
			return nil, err
		}
		result = append(result, doctor.TimeOfDay(min))
	}
	return result, rows.Err()
}

// Creation and reads

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.q(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, booking_id, patient_id, doctor_id, clinic_id,
			appointment_date, start_minute, duration, status_id, consultation_fee,
			symptoms, notes, prescription, follow_up_date, payment_status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.BookingID, a.PatientID, a.DoctorID, a.ClinicID,
		a.Date, a.Time.Minutes(), a.Duration, a.StatusID, a.ConsultationFee,
		a.Symptoms, a.Notes, a.Prescription, a.FollowUpDate, a.PaymentStatus,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+appointmentCols+` FROM `+appointmentFrom+`
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetByBookingID(ctx context.Context, bookingID string) (*Appointment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+appointmentCols+` FROM `+appointmentFrom+`
		WHERE a.booking_id = $1
	`, bookingID)
	return scanAppointment(row)
}

func (r *PgRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return r.list(ctx, "a.patient_id", patientID, f)
}

func (r *PgRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return r.list(ctx, "a.doctor_id", doctorID, f)
}

func (r *PgRepository) list(ctx context.Context, ownerCol string, ownerID uuid.UUID, f ListFilter) ([]Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM ` + appointmentFrom + `
		WHERE ` + ownerCol + ` = $1`
	args := []any{ownerID}

	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND s.name = $2`
	}
	if f.FromDate != nil {
		args = append(args, *f.FromDate)
		query += ` AND a.appointment_date >= $` + strconv.Itoa(len(args))
	}
	if f.ToDate != nil {
		args = append(args, *f.ToDate)
		query += ` AND a.appointment_date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY a.appointment_date DESC, a.start_minute DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Transitions

func (r *PgRepository) UpdateStatusCAS(ctx context.Context, a *Appointment, fromStatusID, toStatusID uuid.UUID) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE appointments
		SET status_id = $1,
		    slot_held = (SELECT class = 'active' FROM appointment_statuses WHERE id = $1),
		    notes = $2, prescription = $3, follow_up_date = $4, updated_at = now()
		WHERE id = $5 AND status_id = $6
	`, toStatusID, a.Notes, a.Prescription, a.FollowUpDate, a.ID, fromStatusID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) InsertHistory(ctx context.Context, h *History) error {
	return r.q(ctx).QueryRow(ctx, `
		INSERT INTO appointment_history (appointment_id, old_status, new_status, changed_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, h.AppointmentID, h.OldStatus, h.NewStatus, h.ChangedBy, h.Reason,
	).Scan(&h.ID, &h.CreatedAt)
}

func (r *PgRepository) HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]History, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, appointment_id, old_status, new_status, changed_by, reason, created_at
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY created_at, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.AppointmentID, &h.OldStatus, &h.NewStatus,
			&h.ChangedBy, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// Reminder worker

func (r *PgRepository) ListNeedingReminder(ctx context.Context, from, to time.Time, activeNames []string) ([]Appointment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM `+appointmentFrom+`
		WHERE s.name = ANY($1)
		  AND a.reminder_sent_at IS NULL
		  AND a.appointment_date::timestamp + make_interval(mins => a.start_minute) BETWEEN $2 AND $3
		ORDER BY a.appointment_date, a.start_minute
	`, activeNames, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE appointments SET reminder_sent_at = $1, updated_at = now()
		WHERE id = $2
	`, at, id)
	return err
}
