package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heydoc/scheduling/internal/doctor"
)

// memRepo is an in-memory Repository. All mutations hold one mutex, so
// concurrent bookings in tests contend the way serialized transactions
// would.
type memRepo struct {
	mu       sync.Mutex
	statuses map[string]Status
	appts    map[uuid.UUID]*Appointment
	history  []History
}

func newMemRepo(statuses ...Status) *memRepo {
	r := &memRepo{
		statuses: make(map[string]Status),
		appts:    make(map[uuid.UUID]*Appointment),
	}
	for _, s := range statuses {
		r.statuses[s.Name] = s
	}
	return r
}

func seededStatuses() []Status {
	return []Status{
		{ID: uuid.New(), Name: StatusScheduled, Class: ClassActive},
		{ID: uuid.New(), Name: StatusConfirmed, Class: ClassActive},
		{ID: uuid.New(), Name: StatusCompleted, Class: ClassTerminalCompleted},
		{ID: uuid.New(), Name: StatusCancelled, Class: ClassTerminalCancelled},
		{ID: uuid.New(), Name: StatusNoShow, Class: ClassTerminalCancelled},
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (r *memRepo) statusName(id uuid.UUID) string {
	for _, s := range r.statuses {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}

func (r *memRepo) ListStatuses(context.Context) ([]Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) GetStatusByName(_ context.Context, name string) (*Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[name]; ok {
		return &s, nil
	}
	return nil, ErrStatusNotFound
}

func (r *memRepo) CreateStatus(_ context.Context, s *Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.statuses[s.Name]; ok {
		*s = existing
		return nil
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.statuses[s.Name] = *s
	return nil
}

func (r *memRepo) ExistsActiveAt(_ context.Context, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, active []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.existsActiveAtLocked(doctorID, date, t, active), nil
}

func (r *memRepo) existsActiveAtLocked(doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, active []string) bool {
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == t &&
			contains(active, r.statusName(a.StatusID)) {
			return true
		}
	}
	return false
}

func (r *memRepo) ExistsActiveForPatientAt(_ context.Context, patientID, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, active []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.PatientID == patientID && a.DoctorID == doctorID && a.Date.Equal(date) &&
			a.Time == t && contains(active, r.statusName(a.StatusID)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) CountActiveOnDate(_ context.Context, patientID uuid.UUID, date time.Time, active []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.appts {
		if a.PatientID == patientID && a.Date.Equal(date) &&
			contains(active, r.statusName(a.StatusID)) {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) ActiveTimes(_ context.Context, doctorID uuid.UUID, date time.Time, active []string) ([]doctor.TimeOfDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []doctor.TimeOfDay
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) &&
			contains(active, r.statusName(a.StatusID)) {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (r *memRepo) Insert(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := []string{StatusScheduled, StatusConfirmed}
	for _, existing := range r.appts {
		if existing.BookingID == a.BookingID {
			return uniqueViolation("uq_appointments_booking_id")
		}
	}
	if r.existsActiveAtLocked(a.DoctorID, a.Date, a.Time, active) {
		return uniqueViolation("uq_appointments_doctor_slot")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	cp.Status = r.statusName(a.StatusID)
	return &cp, nil
}

func (r *memRepo) GetByBookingID(_ context.Context, bookingID string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.BookingID == bookingID {
			cp := *a
			cp.Status = r.statusName(a.StatusID)
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) ListForPatient(_ context.Context, patientID uuid.UUID, _ ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID {
			cp := *a
			cp.Status = r.statusName(a.StatusID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, _ ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID {
			cp := *a
			cp.Status = r.statusName(a.StatusID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateStatusCAS(_ context.Context, a *Appointment, fromStatusID, toStatusID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appts[a.ID]
	if !ok || stored.StatusID != fromStatusID {
		return false, nil
	}
	stored.StatusID = toStatusID
	stored.Notes = a.Notes
	stored.Prescription = a.Prescription
	stored.FollowUpDate = a.FollowUpDate
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) InsertHistory(_ context.Context, h *History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = int64(len(r.history) + 1)
	h.CreatedAt = time.Now()
	r.history = append(r.history, *h)
	return nil
}

func (r *memRepo) HistoryFor(_ context.Context, appointmentID uuid.UUID) ([]History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []History
	for _, h := range r.history {
		if h.AppointmentID == appointmentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memRepo) ListNeedingReminder(_ context.Context, from, to time.Time, active []string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.ReminderSentAt != nil || !contains(active, r.statusName(a.StatusID)) {
			continue
		}
		start := a.StartAt()
		if !start.Before(from) && !start.After(to) {
			cp := *a
			cp.Status = r.statusName(a.StatusID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *memRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appts[id]; ok {
		t := at
		a.ReminderSentAt = &t
	}
	return nil
}

// passRunner runs the function directly, standing in for a transaction.
type passRunner struct{}

func (passRunner) Serializable(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (passRunner) Transact(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// passLocker runs the function without any locking.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// memDoctors serves a fixed set of doctor profiles.
type memDoctors struct {
	profiles map[uuid.UUID]*doctor.DoctorProfile
}

func newMemDoctors(profiles ...*doctor.DoctorProfile) *memDoctors {
	m := &memDoctors{profiles: make(map[uuid.UUID]*doctor.DoctorProfile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memDoctors) GetProfileByID(_ context.Context, id uuid.UUID) (*doctor.DoctorProfile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, doctor.ErrDoctorNotFound
}

func (m *memDoctors) GetProfileByUserID(context.Context, uuid.UUID) (*doctor.DoctorProfile, error) {
	return nil, doctor.ErrDoctorNotFound
}

func (m *memDoctors) SchedulesFor(context.Context, uuid.UUID, time.Weekday) ([]doctor.Schedule, error) {
	return nil, nil
}

func (m *memDoctors) UnavailabilityOn(context.Context, uuid.UUID, time.Time) ([]doctor.Unavailability, error) {
	return nil, nil
}

func (m *memDoctors) CreateProfile(context.Context, *doctor.DoctorProfile) error         { return nil }
func (m *memDoctors) CreateClinic(context.Context, *doctor.Clinic) error                 { return nil }
func (m *memDoctors) CreateSchedule(context.Context, *doctor.Schedule) error             { return nil }
func (m *memDoctors) CreateUnavailability(context.Context, *doctor.Unavailability) error { return nil }
