package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/auth"
	"github.com/heydoc/scheduling/internal/review"
)

func createReviewHandler(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
			return
		}

		var req CreateReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeFieldError(w, "doctor_id", "doctor_id must be a valid UUID")
			return
		}

		var appointmentID *uuid.UUID
		if req.AppointmentID != "" {
			id, err := uuid.Parse(req.AppointmentID)
			if err != nil {
				writeFieldError(w, "appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		rv, err := svc.Create(r.Context(), review.CreateRequest{
			DoctorID:      doctorID,
			PatientID:     principal.UserID,
			AppointmentID: appointmentID,
			Rating:        req.Rating,
			Comment:       req.Comment,
		})
		if err != nil {
			var ve *review.ValidationError
			switch {
			case errors.As(err, &ve):
				writeFieldError(w, ve.Field, ve.Message)
			case errors.Is(err, review.ErrDuplicate):
				writeFieldError(w, "non_field_errors", "You have already reviewed this appointment.")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, toReviewResponse(rv))
	}
}

func listReviewsHandler(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeFieldError(w, "doctor_id", "doctor_id must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		reviews, err := svc.ListForDoctor(r.Context(), doctorID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ReviewResponse, 0, len(reviews))
		for i := range reviews {
			resp = append(resp, toReviewResponse(&reviews[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteReviewHandler(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing principal")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_review_id", "id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), id, principal.UserID); err != nil {
			if errors.Is(err, review.ErrReviewNotFound) {
				writeError(w, http.StatusNotFound, "review_not_found", err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
