package doctor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/heydoc/scheduling/internal/clock"
)

// BookedLookup reports the start times of active-status appointments for
// a doctor on a date. Implemented by the appointment repository; the
// interface lives here so the calendar does not depend on that package.
type BookedLookup interface {
	ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOfDay, error)
}

// Calendar computes bookable slots from recurring schedules, one-off
// unavailability, and existing bookings. Results are recomputed on every
// call; nothing is cached.
type Calendar struct {
	repo   Repository
	booked BookedLookup
	clock  clock.Clock
}

func NewCalendar(repo Repository, booked BookedLookup, clk clock.Clock) *Calendar {
	return &Calendar{repo: repo, booked: booked, clock: clk}
}

// DaySheet is one day of a doctor's calendar: the open slots, the times
// already taken, and the size of the full schedule grid.
type DaySheet struct {
	Available []Slot
	Booked    []TimeOfDay
	Total     int
}

// SlotsFor returns the ordered open slots for a doctor on a date. A date
// with no matching schedules yields an empty sequence, not an error.
func (c *Calendar) SlotsFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	sheet, err := c.DaySheet(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return sheet.Available, nil
}

// DaySheet computes the full day view used by the availability endpoints.
func (c *Calendar) DaySheet(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySheet, error) {
	schedules, err := c.repo.SchedulesFor(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	sheet := &DaySheet{Available: []Slot{}, Booked: []TimeOfDay{}}
	if len(schedules) == 0 {
		return sheet, nil
	}

	unavail, err := c.repo.UnavailabilityOn(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load unavailability: %w", err)
	}
	fullDayOff := false
	for _, u := range unavail {
		if u.IsFullDay {
			fullDayOff = true
			break
		}
	}

	bookedTimes, err := c.booked.ActiveTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	taken := make(map[TimeOfDay]bool, len(bookedTimes))
	for _, t := range bookedTimes {
		taken[t.Normalize()] = true
	}
	sheet.Booked = bookedTimes

	now := c.clock.Now()
	isToday := sameDate(date, now)
	nowMinute := TimeOfDay(now.Hour()*60 + now.Minute())

	for _, sched := range schedules {
		start, end := sched.StartTime, sched.EndTime
		if end <= start {
			// Overnight window: normalize before stepping.
			end += 24 * 60
		}
		if sched.SlotDuration <= 0 {
			continue
		}
		for t := start; t < end; t += TimeOfDay(sched.SlotDuration) {
			sheet.Total++
			if fullDayOff {
				continue
			}
			if blockedBy(unavail, t, sched.SlotDuration) {
				continue
			}
			if taken[t.Normalize()] {
				continue
			}
			if isToday && t.Normalize() <= nowMinute {
				continue
			}
			sheet.Available = append(sheet.Available, Slot{Time: t.Normalize(), ClinicID: sched.ClinicID})
		}
	}

	sort.Slice(sheet.Available, func(i, j int) bool {
		return sheet.Available[i].Time < sheet.Available[j].Time
	})
	return sheet, nil
}

func blockedBy(unavail []Unavailability, start TimeOfDay, duration int) bool {
	for _, u := range unavail {
		if u.Blocks(start, duration) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
