package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/clock"
)

func availableSlotsHandler(svc SlotReader, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeFieldError(w, "doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeFieldError(w, "date", "Date has wrong format. Use YYYY-MM-DD.")
			return
		}

		resp := AvailableSlotsResponse{
			DoctorID:       doctorID,
			Date:           date.Format(dateLayout),
			AvailableSlots: []SlotResponse{},
			BookedSlots:    []string{},
		}

		// A past date is an empty answer, not an error.
		today := clk.Now().UTC().Truncate(24 * time.Hour)
		if date.Before(today) {
			resp.Message = "Cannot book appointments for past dates."
			writeJSON(w, http.StatusOK, resp)
			return
		}

		sheet, err := svc.DaySheet(r.Context(), doctorID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		for _, s := range sheet.Available {
			resp.AvailableSlots = append(resp.AvailableSlots, SlotResponse{Time: s.Time.String(), ClinicID: s.ClinicID})
		}
		for _, t := range sheet.Booked {
			resp.BookedSlots = append(resp.BookedSlots, t.Normalize().String())
		}
		resp.TotalSlots = sheet.Total
		resp.AvailableCount = len(sheet.Available)
		writeJSON(w, http.StatusOK, resp)
	}
}

func checkDateAvailabilityHandler(svc SlotReader, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeFieldError(w, "doctor_id", "doctor_id must be a valid UUID")
			return
		}

		// A single date returns one object, a comma-separated batch an
		// array in request order.
		single := r.URL.Query().Get("date")
		batch := r.URL.Query().Get("dates")
		switch {
		case single != "":
			result, err := checkDate(r, svc, clk, doctorID, single)
			if err != nil {
				writeFieldError(w, "date", "Date has wrong format. Use YYYY-MM-DD.")
				return
			}
			writeJSON(w, http.StatusOK, result)
		case batch != "":
			var results []DateAvailability
			for _, s := range strings.Split(batch, ",") {
				result, err := checkDate(r, svc, clk, doctorID, strings.TrimSpace(s))
				if err != nil {
					writeFieldError(w, "dates", "Date has wrong format. Use YYYY-MM-DD.")
					return
				}
				results = append(results, result)
			}
			writeJSON(w, http.StatusOK, results)
		default:
			writeFieldError(w, "date", "Provide date or dates.")
		}
	}
}

func checkDate(r *http.Request, svc SlotReader, clk clock.Clock, doctorID uuid.UUID, s string) (DateAvailability, error) {
	date, err := time.Parse(dateLayout, s)
	if err != nil {
		return DateAvailability{}, err
	}

	result := DateAvailability{Date: date.Format(dateLayout)}
	today := clk.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		result.Message = "Cannot book appointments for past dates."
		return result, nil
	}

	sheet, err := svc.DaySheet(r.Context(), doctorID, date)
	if err != nil {
		return DateAvailability{}, err
	}
	result.AvailableCount = len(sheet.Available)
	result.BookedCount = len(sheet.Booked)
	result.TotalSlots = sheet.Total
	result.Available = result.AvailableCount > 0
	return result, nil
}
