package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is one patient's rating of a doctor, optionally tied to the
// appointment that prompted it. Only approved reviews count toward the
// doctor's aggregate rating.
type Review struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Rating        int // 1..5
	Comment       string
	IsApproved    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
