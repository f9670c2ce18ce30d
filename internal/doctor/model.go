package doctor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is a clock time expressed as minutes since midnight. Slot
// arithmetic works in whole minutes; values past 1439 appear only while
// stepping through a normalized overnight window.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	n := int(t) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", n/60, n%60)
}

// Minutes returns the raw minute count.
func (t TimeOfDay) Minutes() int { return int(t) }

// Normalize folds an overnight-stepped value back into 0..1439.
func (t TimeOfDay) Normalize() TimeOfDay { return TimeOfDay(int(t) % (24 * 60)) }

// At anchors the time of day on the given calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	n := t.Normalize()
	return time.Date(date.Year(), date.Month(), date.Day(), int(n)/60, int(n)%60, 0, 0, date.Location())
}

type DoctorProfile struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	DisplayName     string
	Specialty       *string
	ConsultationFee float64
	Rating          float64
	TotalReviews    int
	IsVerified      bool
	IsAvailable     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanBeBooked reports whether the doctor accepts new appointments.
func (d *DoctorProfile) CanBeBooked() bool {
	return d.IsAvailable && d.IsVerified
}

type Clinic struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Name      string
	Address   string
	Phone     *string
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule is a doctor's recurring weekly availability window at a
// clinic. Unique per (doctor, clinic, day of week).
type Schedule struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	ClinicID     uuid.UUID
	DayOfWeek    time.Weekday
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	SlotDuration int // minutes
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unavailability removes availability on a specific date, either the
// whole day or a sub-range.
type Unavailability struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	StartTime *TimeOfDay
	EndTime   *TimeOfDay
	IsFullDay bool
	Reason    string
	CreatedAt time.Time
}

// Blocks reports whether the unavailability removes a slot starting at
// start and running for duration minutes.
func (u *Unavailability) Blocks(start TimeOfDay, duration int) bool {
	if u.IsFullDay || u.StartTime == nil || u.EndTime == nil {
		return u.IsFullDay
	}
	s := int(start.Normalize())
	return s < int(*u.EndTime) && int(*u.StartTime) < s+duration
}

// Slot is one bookable (time, clinic) pair on a doctor's calendar.
type Slot struct {
	Time     TimeOfDay
	ClinicID uuid.UUID
}
