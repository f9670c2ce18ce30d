package clock

import "time"

// Clock supplies the current time. Slot filtering and the cancellation
// cutoff both depend on "now", so production code takes a Clock instead
// of calling time.Now directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }

// Fixed returns a Clock pinned to t.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }
