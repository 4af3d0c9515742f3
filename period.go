package ear

import (
	"encoding"
	"fmt"
	"time"
)

// Period is a calendar unit used to bucket timeline points.
type Period int

const (
	Hour  Period = iota + 1 // Wall-clock hour.
	Day                     // Local midnight to midnight.
	Week                    // Monday 00:00 to the next Monday.
	Month                   // First of the month.
)

var (
	periodNames  = [...]string{Hour: "hour", Day: "day", Week: "week", Month: "month"}
	periodByName = map[string]Period{"hour": Hour, "day": Day, "week": Week, "month": Month}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Period(0)
	_ encoding.TextMarshaler   = Period(0)
	_ encoding.TextUnmarshaler = (*Period)(nil)
)

// IsValid reports whether p is one of the defined periods.
func (p Period) IsValid() bool {
	return p >= Hour && p <= Month
}

func (p Period) String() string {
	if p.IsValid() {
		return periodNames[p]
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("ear: invalid period: %d", int(p))
	}
	return []byte(periodNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	v, ok := periodByName[string(text)]
	if !ok {
		return fmt.Errorf("ear: invalid period: %q", text)
	}
	*p = v
	return nil
}

// Start returns the beginning of the period containing t, in loc.
// Day, week and month boundaries are built with time.Date so they follow
// the location's calendar, including DST transitions, rather than fixed
// durations. Hours are truncated on the instant so a repeated wall-clock
// hour on a fall-back day keeps its own offset.
func (p Period) Start(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch p {
	case Hour:
		return t.Add(-(time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second +
			time.Duration(t.Nanosecond())))
	case Week:
		back := (int(t.Weekday()) + 6) % 7 // days since Monday
		return time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}
