package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/clock"
)

// fakeRepo serves schedules and unavailability from memory. Only the
// calendar-facing reads are implemented.
type fakeRepo struct {
	schedules []Schedule
	unavail   []Unavailability
}

func (f *fakeRepo) GetProfileByID(context.Context, uuid.UUID) (*DoctorProfile, error) {
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) GetProfileByUserID(context.Context, uuid.UUID) (*DoctorProfile, error) {
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) SchedulesFor(_ context.Context, _ uuid.UUID, day time.Weekday) ([]Schedule, error) {
	var out []Schedule
	for _, s := range f.schedules {
		if s.DayOfWeek == day && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) UnavailabilityOn(_ context.Context, _ uuid.UUID, date time.Time) ([]Unavailability, error) {
	var out []Unavailability
	for _, u := range f.unavail {
		if u.Date.Equal(date) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateProfile(context.Context, *DoctorProfile) error    { return nil }
func (f *fakeRepo) CreateClinic(context.Context, *Clinic) error            { return nil }
func (f *fakeRepo) CreateSchedule(context.Context, *Schedule) error        { return nil }
func (f *fakeRepo) CreateUnavailability(context.Context, *Unavailability) error { return nil }

type fakeBooked struct {
	times []TimeOfDay
}

func (f *fakeBooked) ActiveTimes(context.Context, uuid.UUID, time.Time) ([]TimeOfDay, error) {
	return f.times, nil
}

var (
	// 2026-03-09 is a Monday.
	monday   = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	aWeekAgo = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

func mondaySchedule(start, end, slot int) Schedule {
	return Schedule{
		ID:           uuid.New(),
		DoctorID:     uuid.New(),
		ClinicID:     uuid.New(),
		DayOfWeek:    time.Monday,
		StartTime:    TimeOfDay(start),
		EndTime:      TimeOfDay(end),
		SlotDuration: slot,
		IsActive:     true,
	}
}

func slotTimes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time.String()
	}
	return out
}

func assertSlots(t *testing.T, got []Slot, want []string) {
	t.Helper()
	gotTimes := slotTimes(got)
	if len(gotTimes) != len(want) {
		t.Fatalf("slots = %v, want %v", gotTimes, want)
	}
	for i := range want {
		if gotTimes[i] != want[i] {
			t.Fatalf("slots = %v, want %v", gotTimes, want)
		}
	}
}

func TestCalendarBasicSlots(t *testing.T) {
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)}}
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(aWeekAgo))

	slots, err := cal.SlotsFor(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, slots, []string{"09:00", "09:30", "10:00", "10:30"})
}

func TestCalendarNoScheduleDay(t *testing.T) {
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)}}
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(aWeekAgo))

	tuesday := monday.AddDate(0, 0, 1)
	slots, err := cal.SlotsFor(context.Background(), uuid.New(), tuesday)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on an unscheduled day, got %v", slotTimes(slots))
	}
}

func TestCalendarUnavailabilityWindow(t *testing.T) {
	at := func(m int) *TimeOfDay { v := TimeOfDay(m); return &v }
	repo := &fakeRepo{
		schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)},
		unavail: []Unavailability{{
			Date:      monday,
			StartTime: at(9*60 + 30),
			EndTime:   at(10*60 + 30),
		}},
	}
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(aWeekAgo))

	slots, err := cal.SlotsFor(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, slots, []string{"09:00", "10:30"})
}

func TestCalendarFullDayOff(t *testing.T) {
	repo := &fakeRepo{
		schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)},
		unavail:   []Unavailability{{Date: monday, IsFullDay: true}},
	}
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(aWeekAgo))

	sheet, err := cal.DaySheet(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet.Available) != 0 {
		t.Errorf("expected no slots on a full day off, got %v", slotTimes(sheet.Available))
	}
	if sheet.Total != 4 {
		t.Errorf("Total = %d, want 4: the grid size ignores unavailability", sheet.Total)
	}
}

func TestCalendarBookedSlotsExcluded(t *testing.T) {
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)}}
	booked := &fakeBooked{times: []TimeOfDay{TimeOfDay(9*60 + 30), TimeOfDay(10 * 60)}}
	cal := NewCalendar(repo, booked, clock.Fixed(aWeekAgo))

	slots, err := cal.SlotsFor(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, slots, []string{"09:00", "10:30"})
}

func TestCalendarTodayPastSlotsExcluded(t *testing.T) {
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(9*60, 11*60, 30)}}
	// 10:00 on the queried day: 09:00, 09:30 and 10:00 itself are gone.
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(now))

	slots, err := cal.SlotsFor(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, slots, []string{"10:30"})
}

func TestCalendarOvernightSchedule(t *testing.T) {
	// 22:00 to 02:00 crosses midnight: slots at 22:00, 23:00, 00:00, 01:00.
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(22*60, 2*60, 60)}}
	cal := NewCalendar(repo, &fakeBooked{}, clock.Fixed(aWeekAgo))

	sheet, err := cal.DaySheet(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	if sheet.Total != 4 {
		t.Fatalf("Total = %d, want 4", sheet.Total)
	}
	assertSlots(t, sheet.Available, []string{"00:00", "01:00", "22:00", "23:00"})
}

func TestCalendarBookedOvernightSlotExcluded(t *testing.T) {
	repo := &fakeRepo{schedules: []Schedule{mondaySchedule(22*60, 2*60, 60)}}
	booked := &fakeBooked{times: []TimeOfDay{TimeOfDay(0)}}
	cal := NewCalendar(repo, booked, clock.Fixed(aWeekAgo))

	slots, err := cal.SlotsFor(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, slots, []string{"01:00", "22:00", "23:00"})
}
