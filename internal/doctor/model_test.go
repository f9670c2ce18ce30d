package doctor

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay(9 * 60), false},
		{"00:00", TimeOfDay(0), false},
		{"23:59", TimeOfDay(23*60 + 59), false},
		{"9:00", TimeOfDay(9 * 60), false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"0900", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := TimeOfDay(9*60 + 30).String(); got != "09:30" {
		t.Errorf("String() = %q, want 09:30", got)
	}
	if got := TimeOfDay(0).String(); got != "00:00" {
		t.Errorf("String() = %q, want 00:00", got)
	}
	// Wrapped overnight times render as their next-day clock time.
	if got := TimeOfDay(25 * 60).String(); got != "01:00" {
		t.Errorf("String() = %q, want 01:00", got)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	got := TimeOfDay(14*60 + 15).At(date)
	want := time.Date(2026, 3, 10, 14, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("At() = %v, want %v", got, want)
	}
}

func TestUnavailabilityBlocks(t *testing.T) {
	at := func(m int) *TimeOfDay { t := TimeOfDay(m); return &t }

	full := Unavailability{IsFullDay: true}
	if !full.Blocks(TimeOfDay(9*60), 30) {
		t.Error("full-day unavailability should block every slot")
	}

	window := Unavailability{StartTime: at(9*60 + 30), EndTime: at(10*60 + 30)}
	cases := []struct {
		start TimeOfDay
		want  bool
	}{
		{TimeOfDay(9 * 60), false},       // ends exactly at window start
		{TimeOfDay(9*60 + 30), true},     // starts at window start
		{TimeOfDay(10 * 60), true},       // inside window
		{TimeOfDay(10*60 + 15), true},    // overlaps window end
		{TimeOfDay(10*60 + 30), false},   // starts exactly at window end
		{TimeOfDay(11 * 60), false},      // after window
	}
	for _, tc := range cases {
		if got := window.Blocks(tc.start, 30); got != tc.want {
			t.Errorf("Blocks(%s, 30) = %v, want %v", tc.start, got, tc.want)
		}
	}
}
