package engine

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// ScheduledWindowLength is the length of the vehicle's own charging schedule
// window, starting at the configured scheduled start time.
const ScheduledWindowLength = 6 * time.Hour

// Window is a time-of-day interval. Start and End are offsets from local
// midnight; End before Start means the window wraps past midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// NewScheduledWindow returns the fixed length window starting at start.
func NewScheduledWindow(start time.Duration) Window {
	return Window{Start: start, End: (start + ScheduledWindowLength) % day}
}

// ParseClock parses an "HH:MM" string into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	d = ((d % day) + day) % day
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func (w Window) String() string { return FormatClock(w.Start) + "-" + FormatClock(w.End) }

// Validate rejects empty and out of range windows.
func (w Window) Validate() error {
	if w.Start < 0 || w.Start >= day || w.End < 0 || w.End >= day {
		return fmt.Errorf("window bounds must be within a day")
	}
	if w.Start == w.End {
		return fmt.Errorf("window start and end are equal")
	}
	return nil
}

// Remaining reports whether tod falls inside the window and how long remains
// until the window ends. Both bounds are inclusive. Times before Start are
// moved onto the next day so a wrapping window becomes one increasing range.
func (w Window) Remaining(tod time.Duration) (bool, time.Duration) {
	end := w.End
	if end < w.Start {
		end += day
	}
	t := tod
	if t < w.Start {
		t += day
	}
	if t > end {
		return false, 0
	}
	return true, end - t
}

// Contains reports whether tod falls inside the window.
func (w Window) Contains(tod time.Duration) bool {
	in, _ := w.Remaining(tod)
	return in
}

// TimeOfDay returns the offset of t from midnight in loc.
func TimeOfDay(t time.Time, loc *time.Location) time.Duration {
	if loc != nil {
		t = t.In(loc)
	}
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// NightStatus reports whether now falls inside the nightly window and the
// time left until it closes.
func NightStatus(cfg Config, now time.Time) (bool, time.Duration) {
	return cfg.Night.Remaining(TimeOfDay(now, cfg.location()))
}

// IsZero reports whether w is the unset window.
func (w Window) IsZero() bool { return w == Window{} }

// InScheduledWindow reports whether now falls inside the scheduled charging
// window. An unset window never matches.
func InScheduledWindow(cfg Config, now time.Time) bool {
	if cfg.Scheduled.IsZero() {
		return false
	}
	return cfg.Scheduled.Contains(TimeOfDay(now, cfg.location()))
}
