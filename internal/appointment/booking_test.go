package appointment

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/doctor"
	"github.com/heydoc/scheduling/internal/notify"
)

var bookingIDPattern = regexp.MustCompile(`^HEY[0-9A-F]{8}$`)

func TestGenerateBookingID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateBookingID()
		if !bookingIDPattern.MatchString(id) {
			t.Fatalf("booking id %q does not match HEY + 8 hex chars", id)
		}
		if seen[id] {
			t.Fatalf("booking id %q repeated", id)
		}
		seen[id] = true
	}
}

func testDoctor() *doctor.DoctorProfile {
	return &doctor.DoctorProfile{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		DisplayName:     "Dr. Test",
		ConsultationFee: 75,
		IsVerified:      true,
		IsAvailable:     true,
	}
}

func newTestBooker(repo *memRepo, doc *doctor.DoctorProfile, now time.Time) *BookingService {
	reg := NewStatusRegistry()
	_ = reg.Load(context.Background(), repo)
	validator := NewConflictValidator(repo, reg, 3)
	return NewBookingService(
		repo, newMemDoctors(doc), validator, reg,
		passLocker{}, passRunner{}, clock.Fixed(now), notify.Discard{}, zerolog.Nop(), 3)
}

var bookNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestBookHappyPath(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()
	svc := newTestBooker(repo, doc, bookNow)

	appt, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      doctor.TimeOfDay(10 * 60),
		Symptoms:  "headache",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bookingIDPattern.MatchString(appt.BookingID) {
		t.Errorf("booking id %q malformed", appt.BookingID)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("Status = %s, want scheduled", appt.Status)
	}
	if appt.ConsultationFee != 75 {
		t.Errorf("ConsultationFee = %v, want the doctor's fee 75", appt.ConsultationFee)
	}
	if appt.Duration != 30 {
		t.Errorf("Duration = %d, want default 30", appt.Duration)
	}
	if appt.PaymentStatus != PaymentPending {
		t.Errorf("PaymentStatus = %s, want pending", appt.PaymentStatus)
	}

	stored, err := repo.GetByBookingID(context.Background(), appt.BookingID)
	if err != nil {
		t.Fatalf("appointment not persisted: %v", err)
	}
	if stored.ID != appt.ID {
		t.Error("persisted appointment does not match returned one")
	}
}

func TestBookPastDateRejected(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()
	svc := newTestBooker(repo, doc, bookNow)

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      bookNow.AddDate(0, 0, -1),
		Time:      doctor.TimeOfDay(10 * 60),
	})
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.Kind != KindPastDate {
		t.Errorf("Kind = %s, want %s", ce.Kind, KindPastDate)
	}
	if ce.Field != "appointment_date" {
		t.Errorf("Field = %s, want appointment_date", ce.Field)
	}
}

func TestBookSameDayAllowed(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()
	svc := newTestBooker(repo, doc, bookNow)

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      bookNow,
		Time:      doctor.TimeOfDay(16 * 60),
	})
	if err != nil {
		t.Errorf("same-day booking should pass the date check: %v", err)
	}
}

func TestBookUnavailableDoctorRejected(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()
	doc.IsAvailable = false
	svc := newTestBooker(repo, doc, bookNow)

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      doctor.TimeOfDay(10 * 60),
	})
	if _, ok := AsConflict(err); !ok {
		t.Fatalf("expected ConflictError for unavailable doctor, got %v", err)
	}
}

func TestBookLazilyCreatesScheduledStatus(t *testing.T) {
	// Statuses table never seeded.
	repo := newMemRepo()
	doc := testDoctor()
	svc := newTestBooker(repo, doc, bookNow)

	appt, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      doctor.TimeOfDay(10 * 60),
	})
	if err != nil {
		t.Fatal(err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("Status = %s, want scheduled", appt.Status)
	}
	created, err := repo.GetStatusByName(context.Background(), StatusScheduled)
	if err != nil {
		t.Fatalf("scheduled status was not created: %v", err)
	}
	if created.Class != ClassActive {
		t.Errorf("lazily created status class = %s, want active", created.Class)
	}
}

func TestBookConcurrentSameSlotOneWinner(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()
	svc := newTestBooker(repo, doc, bookNow)

	const patients = 20
	tm := doctor.TimeOfDay(10 * 60)

	var wg sync.WaitGroup
	results := make(chan error, patients)
	for i := 0; i < patients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), BookRequest{
				PatientID: uuid.New(),
				DoctorID:  doc.ID,
				Date:      testDate,
				Time:      tm,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if _, ok := AsConflict(err); ok {
			conflicts++
			continue
		}
		t.Errorf("unexpected error: %v", err)
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != patients-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, patients-1)
	}
}

func TestBookRetriesBookingIDCollision(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()

	// First insert fails with a booking-id collision, the retry goes
	// through.
	failing := &collidingRepo{memRepo: repo, failures: 1}
	reg := NewStatusRegistry()
	_ = reg.Load(context.Background(), repo)
	validator := NewConflictValidator(failing, reg, 3)
	svc := NewBookingService(failing, newMemDoctors(doc), validator, reg,
		passLocker{}, passRunner{}, clock.Fixed(bookNow), notify.Discard{}, zerolog.Nop(), 3)

	appt, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      doctor.TimeOfDay(10 * 60),
	})
	if err != nil {
		t.Fatal(err)
	}
	if failing.inserts != 2 {
		t.Errorf("inserts = %d, want 2 (one collision, one success)", failing.inserts)
	}
	if appt.BookingID == "" {
		t.Error("appointment has no booking id")
	}
}

func TestBookGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMemRepo(seededStatuses()...)
	doc := testDoctor()

	failing := &collidingRepo{memRepo: repo, failures: 10}
	reg := NewStatusRegistry()
	_ = reg.Load(context.Background(), repo)
	validator := NewConflictValidator(failing, reg, 3)
	svc := NewBookingService(failing, newMemDoctors(doc), validator, reg,
		passLocker{}, passRunner{}, clock.Fixed(bookNow), notify.Discard{}, zerolog.Nop(), 3)

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      doctor.TimeOfDay(10 * 60),
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if _, ok := AsConflict(err); ok {
		t.Error("exhausted booking-id retries must not masquerade as a slot conflict")
	}
	if failing.inserts != 3 {
		t.Errorf("inserts = %d, want 3 attempts", failing.inserts)
	}
}

// collidingRepo fails the first N inserts with a booking-id unique
// violation.
type collidingRepo struct {
	*memRepo
	failures int
	inserts  int
}

func (r *collidingRepo) Insert(ctx context.Context, a *Appointment) error {
	r.inserts++
	if r.inserts <= r.failures {
		return uniqueViolation("uq_appointments_booking_id")
	}
	return r.memRepo.Insert(ctx, a)
}
