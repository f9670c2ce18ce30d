package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStatusNotFound      = errors.New("appointment status not found")
)

// ConflictKind names the booking rule a request violated.
type ConflictKind string

const (
	KindDoctorConflict   ConflictKind = "doctor_conflict"
	KindPatientConflict  ConflictKind = "patient_conflict"
	KindDailyCapExceeded ConflictKind = "daily_cap_exceeded"
	KindPastDate         ConflictKind = "past_date"
	KindMalformedDate    ConflictKind = "malformed_date"
)

// ConflictError is a validation failure returned to the caller with a
// field-scoped message. It is never retried internally.
type ConflictError struct {
	Kind    ConflictKind
	Field   string // appointment_time, appointment_date, or non_field_errors
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsConflict unwraps err into a ConflictError, if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IllegalTransitionError is an attempted status change the state machine
// does not allow. It is surfaced as a client error, never coerced to the
// nearest legal state.
type IllegalTransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}
