package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/doctor"
)

func loadedRegistry(t *testing.T, repo Repository) *StatusRegistry {
	t.Helper()
	reg := NewStatusRegistry()
	if err := reg.Load(context.Background(), repo); err != nil {
		t.Fatal(err)
	}
	return reg
}

func mustStatus(t *testing.T, repo Repository, name string) Status {
	t.Helper()
	s, err := repo.GetStatusByName(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	return *s
}

func addAppointment(t *testing.T, repo *memRepo, patientID, doctorID uuid.UUID, date time.Time, tm doctor.TimeOfDay, statusName string) *Appointment {
	t.Helper()
	status := mustStatus(t, repo, statusName)
	a := &Appointment{
		BookingID: GenerateBookingID(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      tm,
		Duration:  30,
		StatusID:  status.ID,
		Status:    status.Name,
	}
	repo.mu.Lock()
	a.ID = uuid.New()
	cp := *a
	repo.appts[a.ID] = &cp
	repo.mu.Unlock()
	return a
}

var testDate = time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)

func TestValidateDoctorConflict(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	reg := loadedRegistry(t, repo)
	v := NewConflictValidator(repo, reg, 3)

	doctorID := uuid.New()
	tm := doctor.TimeOfDay(10 * 60)
	addAppointment(t, repo, uuid.New(), doctorID, testDate, tm, StatusScheduled)

	err := v.Validate(context.Background(), uuid.New(), doctorID, testDate, tm)
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.Kind != KindDoctorConflict {
		t.Errorf("Kind = %s, want %s", ce.Kind, KindDoctorConflict)
	}
	if ce.Field != "appointment_time" {
		t.Errorf("Field = %s, want appointment_time", ce.Field)
	}
}

func TestValidateCancelledSlotIsFree(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	reg := loadedRegistry(t, repo)
	v := NewConflictValidator(repo, reg, 3)

	doctorID := uuid.New()
	tm := doctor.TimeOfDay(10 * 60)
	addAppointment(t, repo, uuid.New(), doctorID, testDate, tm, StatusCancelled)

	if err := v.Validate(context.Background(), uuid.New(), doctorID, testDate, tm); err != nil {
		t.Errorf("cancelled appointment should not hold the slot: %v", err)
	}
}

func TestValidatePatientConflict(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	reg := loadedRegistry(t, repo)
	v := NewConflictValidator(repo, reg, 3)

	patientID := uuid.New()
	doctorID := uuid.New()
	tm := doctor.TimeOfDay(10 * 60)
	addAppointment(t, repo, patientID, doctorID, testDate, tm, StatusConfirmed)

	err := v.Validate(context.Background(), patientID, doctorID, testDate, tm)
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	// The doctor-side check runs first, so the same (patient, doctor,
	// slot) collision reports as a doctor conflict.
	if ce.Kind != KindDoctorConflict {
		t.Errorf("Kind = %s, want %s", ce.Kind, KindDoctorConflict)
	}
}

func TestValidateDailyCap(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	reg := loadedRegistry(t, repo)
	v := NewConflictValidator(repo, reg, 3)

	patientID := uuid.New()
	for i := 0; i < 3; i++ {
		addAppointment(t, repo, patientID, uuid.New(), testDate,
			doctor.TimeOfDay((9+i)*60), StatusScheduled)
	}

	err := v.Validate(context.Background(), patientID, uuid.New(), testDate, doctor.TimeOfDay(15*60))
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.Kind != KindDailyCapExceeded {
		t.Errorf("Kind = %s, want %s", ce.Kind, KindDailyCapExceeded)
	}
	if ce.Field != "appointment_date" {
		t.Errorf("Field = %s, want appointment_date", ce.Field)
	}

	// Cancelled appointments do not count toward the cap.
	repo2 := newMemRepo(seededStatuses()...)
	reg2 := loadedRegistry(t, repo2)
	v2 := NewConflictValidator(repo2, reg2, 3)
	for i := 0; i < 3; i++ {
		addAppointment(t, repo2, patientID, uuid.New(), testDate,
			doctor.TimeOfDay((9+i)*60), StatusCancelled)
	}
	if err := v2.Validate(context.Background(), patientID, uuid.New(), testDate, doctor.TimeOfDay(15*60)); err != nil {
		t.Errorf("cancelled appointments should not count toward the cap: %v", err)
	}
}

func TestRegistryActiveNamesFallback(t *testing.T) {
	reg := NewStatusRegistry()
	names := reg.ActiveNames()
	if len(names) != 2 || !contains(names, StatusScheduled) || !contains(names, StatusConfirmed) {
		t.Errorf("empty registry fallback = %v, want [scheduled confirmed]", names)
	}

	repo := newMemRepo(seededStatuses()...)
	if err := reg.Load(context.Background(), repo); err != nil {
		t.Fatal(err)
	}
	names = reg.ActiveNames()
	if len(names) != 2 || !contains(names, StatusScheduled) || !contains(names, StatusConfirmed) {
		t.Errorf("loaded active names = %v, want [scheduled confirmed]", names)
	}
	if _, ok := reg.Get(StatusCompleted); !ok {
		t.Error("completed status should be loaded")
	}
}
