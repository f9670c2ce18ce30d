package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/appointment"
	"github.com/heydoc/scheduling/internal/review"
)

const (
	dateLayout = "2006-01-02"
)

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	ClinicID        string `json:"clinic_id,omitempty"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Duration        int    `json:"duration,omitempty"`
	Symptoms        string `json:"symptoms,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CompleteAppointmentRequest struct {
	Notes        string `json:"notes,omitempty"`
	Prescription string `json:"prescription,omitempty"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	BookingID       string     `json:"booking_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ClinicID        *uuid.UUID `json:"clinic_id,omitempty"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	Duration        int        `json:"duration"`
	Status          string     `json:"status"`
	ConsultationFee float64    `json:"consultation_fee"`
	Symptoms        string     `json:"symptoms,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Prescription    string     `json:"prescription,omitempty"`
	FollowUpDate    *string    `json:"follow_up_date,omitempty"`
	PaymentStatus   string     `json:"payment_status"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              a.ID,
		BookingID:       a.BookingID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		ClinicID:        a.ClinicID,
		AppointmentDate: a.Date.Format(dateLayout),
		AppointmentTime: a.Time.String(),
		Duration:        a.Duration,
		Status:          a.Status,
		ConsultationFee: a.ConsultationFee,
		Symptoms:        a.Symptoms,
		Notes:           a.Notes,
		Prescription:    a.Prescription,
		PaymentStatus:   string(a.PaymentStatus),
		CreatedAt:       a.CreatedAt,
	}
	if a.FollowUpDate != nil {
		s := a.FollowUpDate.Format(dateLayout)
		resp.FollowUpDate = &s
	}
	return resp
}

type HistoryEntry struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SlotResponse struct {
	Time     string    `json:"time"`
	ClinicID uuid.UUID `json:"clinic_id"`
}

type AvailableSlotsResponse struct {
	DoctorID       uuid.UUID      `json:"doctor_id"`
	Date           string         `json:"date"`
	AvailableSlots []SlotResponse `json:"available_slots"`
	BookedSlots    []string       `json:"booked_slots"`
	TotalSlots     int            `json:"total_slots"`
	AvailableCount int            `json:"available_count"`
	Message        string         `json:"message,omitempty"`
}

type DateAvailability struct {
	Date           string `json:"date"`
	Available      bool   `json:"available"`
	AvailableCount int    `json:"available_count"`
	BookedCount    int    `json:"booked_count"`
	TotalSlots     int    `json:"total_slots"`
	Message        string `json:"message,omitempty"`
}

type CreateReviewRequest struct {
	DoctorID      string `json:"doctor_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment,omitempty"`
}

type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewResponse(rv *review.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID,
		DoctorID:  rv.DoctorID,
		PatientID: rv.PatientID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	}
}
