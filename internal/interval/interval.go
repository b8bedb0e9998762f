package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid indicates an interval whose end does not follow its start.
var ErrInvalid = errors.New("interval: end must be after start")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New constructs an interval, enforcing End > Start.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalid
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether the two half-open ranges share at least one instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Equal reports whether both endpoints match exactly.
func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// IsZero reports whether both endpoints are unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// String formats the interval for logs and error messages.
func (i Interval) String() string {
	const layout = "2006-01-02T15:04:05"
	return fmt.Sprintf("[%s, %s)", i.Start.Format(layout), i.End.Format(layout))
}
