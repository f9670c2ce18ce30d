package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/doctor"
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository contains all DB interactions needed by the booking service,
// the state machine, and the calendar lookup. Methods pick up the
// caller's open transaction from ctx, so conflict reads and the insert
// they guard land on the same connection.
type Repository interface {
	// Status reference data
	ListStatuses(ctx context.Context) ([]Status, error)
	GetStatusByName(ctx context.Context, name string) (*Status, error)
	CreateStatus(ctx context.Context, s *Status) error

	// Conflict reads
	ExistsActiveAt(ctx context.Context, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, activeNames []string) (bool, error)
	ExistsActiveForPatientAt(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, t doctor.TimeOfDay, activeNames []string) (bool, error)
	CountActiveOnDate(ctx context.Context, patientID uuid.UUID, date time.Time, activeNames []string) (int, error)

	// Calendar input
	ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time, activeNames []string) ([]doctor.TimeOfDay, error)

	// Creation and reads
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error)

	// Transitions. UpdateStatusCAS persists the new status plus any
	// clinical-field changes carried on a, but only when the stored
	// status still matches fromStatusID; it reports false otherwise.
	UpdateStatusCAS(ctx context.Context, a *Appointment, fromStatusID, toStatusID uuid.UUID) (bool, error)
	InsertHistory(ctx context.Context, h *History) error
	HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]History, error)

	// Reminder worker
	ListNeedingReminder(ctx context.Context, from, to time.Time, activeNames []string) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CalendarLookup adapts the repository to the calendar's BookedLookup
// interface, resolving the active status set from the registry.
type CalendarLookup struct {
	repo     Repository
	statuses *StatusRegistry
}

func NewCalendarLookup(repo Repository, statuses *StatusRegistry) *CalendarLookup {
	return &CalendarLookup{repo: repo, statuses: statuses}
}

func (l *CalendarLookup) ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]doctor.TimeOfDay, error) {
	return l.repo.ActiveTimes(ctx, doctorID, date, l.statuses.ActiveNames())
}
