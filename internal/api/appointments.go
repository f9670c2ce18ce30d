package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/appointment"
	"github.com/heydoc/scheduling/internal/auth"
	"github.com/heydoc/scheduling/internal/doctor"
	redisclient "github.com/heydoc/scheduling/internal/redis"
)

func createAppointmentHandler(svc Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeFieldError(w, "doctor_id", "doctor_id must be a valid UUID")
			return
		}

		var clinicID *uuid.UUID
		if req.ClinicID != "" {
			id, err := uuid.Parse(req.ClinicID)
			if err != nil {
				writeFieldError(w, "clinic_id", "clinic_id must be a valid UUID")
				return
			}
			clinicID = &id
		}

		date, err := time.Parse(dateLayout, req.AppointmentDate)
		if err != nil {
			writeFieldError(w, "appointment_date", "Date has wrong format. Use YYYY-MM-DD.")
			return
		}

		t, err := doctor.ParseTimeOfDay(req.AppointmentTime)
		if err != nil {
			writeFieldError(w, "appointment_time", "Time has wrong format. Use HH:MM.")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			PatientID: principal.UserID,
			DoctorID:  doctorID,
			ClinicID:  clinicID,
			Date:      date,
			Time:      t,
			Duration:  req.Duration,
			Symptoms:  req.Symptoms,
			Notes:     req.Notes,
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
			return
		}

		filter := appointment.ListFilter{
			Status: r.URL.Query().Get("status"),
			Limit:  50,
		}
		if s := r.URL.Query().Get("from_date"); s != "" {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				writeFieldError(w, "from_date", "Date has wrong format. Use YYYY-MM-DD.")
				return
			}
			filter.FromDate = &d
		}
		if s := r.URL.Query().Get("to_date"); s != "" {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				writeFieldError(w, "to_date", "Date has wrong format. Use YYYY-MM-DD.")
				return
			}
			filter.ToDate = &d
		}

		var (
			appts []appointment.Appointment
			err   error
		)
		if principal.IsDoctor && principal.DoctorID != uuid.Nil {
			appts, err = svc.ListForDoctor(r.Context(), principal.DoctorID, filter)
		} else {
			appts, err = svc.ListForPatient(r.Context(), principal.UserID, filter)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, _, ok := loadParticipantAppointment(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentByBookingIDHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
			return
		}

		appt, err := svc.GetByBookingID(r.Context(), chi.URLParam(r, "bookingID"))
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		isPatient := appt.PatientID == principal.UserID
		isDoctor := principal.IsDoctor && appt.DoctorID == principal.DoctorID
		if !isPatient && !isDoctor {
			writeError(w, http.StatusForbidden, "forbidden", "you are not a participant in this appointment")
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func appointmentHistoryHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, _, ok := loadParticipantAppointment(w, r, svc)
		if !ok {
			return
		}

		history, err := svc.HistoryFor(r.Context(), appt.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]HistoryEntry, 0, len(history))
		for _, h := range history {
			resp = append(resp, HistoryEntry{
				OldStatus: h.OldStatus,
				NewStatus: h.NewStatus,
				ChangedBy: h.ChangedBy,
				Reason:    h.Reason,
				CreatedAt: h.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc Transitioner, reader AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, principal, ok := loadParticipantAppointment(w, r, reader)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		updated, err := svc.Cancel(r.Context(), appt.ID, principal.UserID, req.Reason)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "Appointment cancelled successfully.",
			"booking_id": updated.BookingID,
		})
	}
}

func confirmAppointmentHandler(svc Transitioner, reader AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, principal, ok := loadDoctorAppointment(w, r, reader)
		if !ok {
			return
		}

		updated, err := svc.Confirm(r.Context(), appt.ID, principal.UserID)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func completeAppointmentHandler(svc Transitioner, reader AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, principal, ok := loadDoctorAppointment(w, r, reader)
		if !ok {
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		complete := appointment.CompleteRequest{
			Notes:        req.Notes,
			Prescription: req.Prescription,
		}
		if req.FollowUpDate != "" {
			d, err := time.Parse(dateLayout, req.FollowUpDate)
			if err != nil {
				writeFieldError(w, "follow_up_date", "Date has wrong format. Use YYYY-MM-DD.")
				return
			}
			complete.FollowUpDate = &d
		}

		updated, err := svc.Complete(r.Context(), appt.ID, principal.UserID, complete)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func noShowAppointmentHandler(svc Transitioner, reader AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, principal, ok := loadDoctorAppointment(w, r, reader)
		if !ok {
			return
		}

		updated, err := svc.MarkNoShow(r.Context(), appt.ID, principal.UserID)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

// loadParticipantAppointment parses {id}, loads the appointment and
// rejects callers who are neither the patient nor the doctor on it.
func loadParticipantAppointment(w http.ResponseWriter, r *http.Request, reader AppointmentReader) (*appointment.Appointment, auth.Principal, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return nil, auth.Principal{}, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return nil, principal, false
	}

	appt, err := reader.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return nil, principal, false
	}

	isPatient := appt.PatientID == principal.UserID
	isDoctor := principal.IsDoctor && appt.DoctorID == principal.DoctorID
	if !isPatient && !isDoctor {
		writeError(w, http.StatusForbidden, "forbidden", "you are not a participant in this appointment")
		return nil, principal, false
	}
	return appt, principal, true
}

// loadDoctorAppointment is loadParticipantAppointment restricted to the
// doctor side, for confirm and complete.
func loadDoctorAppointment(w http.ResponseWriter, r *http.Request, reader AppointmentReader) (*appointment.Appointment, auth.Principal, bool) {
	appt, principal, ok := loadParticipantAppointment(w, r, reader)
	if !ok {
		return nil, principal, false
	}
	if !principal.IsDoctor || appt.DoctorID != principal.DoctorID {
		writeError(w, http.StatusForbidden, "forbidden", "only the doctor can perform this action")
		return nil, principal, false
	}
	return appt, principal, true
}

func handleBookError(w http.ResponseWriter, err error) {
	if ce, ok := appointment.AsConflict(err); ok {
		writeFieldError(w, ce.Field, ce.Message)
		return
	}
	switch {
	case errors.Is(err, doctor.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	var ite *appointment.IllegalTransitionError
	switch {
	case errors.As(err, &ite):
		writeFieldError(w, "non_field_errors", ite.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrStatusNotFound):
		writeFieldError(w, "non_field_errors", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
