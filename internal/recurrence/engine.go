package recurrence

import (
	"errors"
	"time"
)

// Occurrence represents one generated weekly repetition of a seed interval.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// ErrInvalidDuration indicates the seed interval duration is not positive.
var ErrInvalidDuration = errors.New("recurrence: seed duration must be positive")

// ErrInvalidTermEnd indicates the expansion has no usable term boundary.
var ErrInvalidTermEnd = errors.New("recurrence: term end is required")

// Engine expands a booked seed interval into weekly occurrences.
//
// All timestamps are normalized to the engine's civil timezone. Expansion
// steps by calendar weeks (AddDate), so the wall clock of the seed is
// preserved across daylight saving transitions.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine for the provided location. If loc is nil,
// UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ExpandWeekly generates one occurrence per week following the seed,
// starting one week after seedStart and stopping once the candidate date
// falls past termEnd. The boundary is inclusive by calendar date: an
// occurrence on the term-end day itself is generated.
func (e *Engine) ExpandWeekly(seedStart, seedEnd, termEnd time.Time) ([]Occurrence, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}

	seedStart = seedStart.In(loc)
	seedEnd = seedEnd.In(loc)
	if !seedEnd.After(seedStart) {
		return nil, ErrInvalidDuration
	}
	if termEnd.IsZero() {
		return nil, ErrInvalidTermEnd
	}
	duration := seedEnd.Sub(seedStart)

	// First instant after the last includable day.
	boundary := startOfDay(termEnd.In(loc), loc).AddDate(0, 0, 1)

	occurrences := make([]Occurrence, 0)
	for current := seedStart.AddDate(0, 0, 7); current.Before(boundary); current = current.AddDate(0, 0, 7) {
		occurrences = append(occurrences, Occurrence{
			Start: current,
			End:   current.Add(duration),
		})
	}

	return occurrences, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
