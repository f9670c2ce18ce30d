package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/notify"
)

// transitions is the legal edge set of the status graph. Terminal
// statuses have no outgoing edges.
var transitions = map[string][]string{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CompleteRequest carries the clinical fields a doctor records when
// closing out a visit.
type CompleteRequest struct {
	Notes        string
	Prescription string
	FollowUpDate *time.Time
}

// StateMachine applies status transitions. Every transition is a
// compare-and-swap on the stored status plus one history row in the same
// transaction, so two concurrent transitions can never both win.
type StateMachine struct {
	repo         Repository
	statuses     *StatusRegistry
	tx           db.Runner
	clock        clock.Clock
	notifier     notify.Notifier
	log          zerolog.Logger
	cancelCutoff time.Duration
}

func NewStateMachine(
	repo Repository,
	statuses *StatusRegistry,
	tx db.Runner,
	clk clock.Clock,
	notifier notify.Notifier,
	log zerolog.Logger,
	cancelCutoff time.Duration,
) *StateMachine {
	return &StateMachine{
		repo:         repo,
		statuses:     statuses,
		tx:           tx,
		clock:        clk,
		notifier:     notifier,
		log:          log,
		cancelCutoff: cancelCutoff,
	}
}

// Confirm moves a scheduled appointment to confirmed.
func (m *StateMachine) Confirm(ctx context.Context, id, actor uuid.UUID) (*Appointment, error) {
	return m.transition(ctx, id, actor, StatusConfirmed, "Appointment confirmed", nil, nil)
}

// Cancel cancels an appointment, enforcing the minimum lead time.
func (m *StateMachine) Cancel(ctx context.Context, id, actor uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		reason = "Cancelled"
	}
	guard := func(a *Appointment) error {
		remaining := a.StartAt().Sub(m.clock.Now())
		if remaining < m.cancelCutoff {
			return &IllegalTransitionError{
				From:   a.Status,
				To:     StatusCancelled,
				Reason: fmt.Sprintf("appointments can only be cancelled at least %s in advance", m.cancelCutoff),
			}
		}
		return nil
	}
	return m.transition(ctx, id, actor, StatusCancelled, reason, guard, nil)
}

// Complete closes out a visit and records the clinical fields.
func (m *StateMachine) Complete(ctx context.Context, id, actor uuid.UUID, req CompleteRequest) (*Appointment, error) {
	apply := func(a *Appointment) {
		if req.Notes != "" {
			a.Notes = req.Notes
		}
		a.Prescription = req.Prescription
		a.FollowUpDate = req.FollowUpDate
	}
	return m.transition(ctx, id, actor, StatusCompleted, "Appointment completed", nil, apply)
}

// MarkNoShow records that the patient did not attend.
func (m *StateMachine) MarkNoShow(ctx context.Context, id, actor uuid.UUID) (*Appointment, error) {
	return m.transition(ctx, id, actor, StatusNoShow, "Patient did not attend", nil, nil)
}

// transition is the single path every status change takes: load, check
// the edge and guard, CAS the row, append history, all in one
// transaction. A CAS miss means a concurrent transition won, which is
// reported as an illegal transition from the now current status.
func (m *StateMachine) transition(
	ctx context.Context,
	id, actor uuid.UUID,
	to string,
	reason string,
	guard func(*Appointment) error,
	apply func(*Appointment),
) (*Appointment, error) {
	toStatus, err := m.resolveStatus(ctx, to)
	if err != nil {
		return nil, err
	}

	var result *Appointment
	err = m.tx.Transact(ctx, func(ctx context.Context) error {
		a, err := m.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(a.Status, to) {
			return &IllegalTransitionError{From: a.Status, To: to}
		}
		if guard != nil {
			if err := guard(a); err != nil {
				return err
			}
		}

		from := a.Status
		fromID := a.StatusID
		if apply != nil {
			apply(a)
		}

		ok, err := m.repo.UpdateStatusCAS(ctx, a, fromID, toStatus.ID)
		if err != nil {
			return err
		}
		if !ok {
			current, err := m.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return &IllegalTransitionError{
				From:   current.Status,
				To:     to,
				Reason: "appointment was updated concurrently",
			}
		}

		h := &History{
			AppointmentID: a.ID,
			OldStatus:     from,
			NewStatus:     to,
			ChangedBy:     actor,
			Reason:        reason,
		}
		if err := m.repo.InsertHistory(ctx, h); err != nil {
			return err
		}

		a.StatusID = toStatus.ID
		a.Status = to
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().
		Str("appointment_id", result.ID.String()).
		Str("booking_id", result.BookingID).
		Str("to", to).
		Msg("appointment status changed")
	m.notifyAsync(result, to)
	return result, nil
}

func (m *StateMachine) resolveStatus(ctx context.Context, name string) (*Status, error) {
	if cached, ok := m.statuses.Get(name); ok {
		return &cached, nil
	}
	status, err := m.repo.GetStatusByName(ctx, name)
	if err != nil {
		return nil, err
	}
	m.statuses.Put(*status)
	return status, nil
}

// notifyAsync fires the notification after commit without holding up
// the response.
func (m *StateMachine) notifyAsync(a *Appointment, to string) {
	kind := map[string]string{
		StatusConfirmed: notify.EventConfirmed,
		StatusCancelled: notify.EventCancelled,
		StatusCompleted: notify.EventCompleted,
		StatusNoShow:    notify.EventNoShow,
	}[to]
	if kind == "" {
		return
	}
	e := notify.Event{
		Kind:          kind,
		AppointmentID: a.ID,
		BookingID:     a.BookingID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		Message:       fmt.Sprintf("Appointment %s is now %s", a.BookingID, to),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.notifier.Notify(ctx, e)
	}()
}
