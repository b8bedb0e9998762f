package application

import "time"

// Principal represents the authenticated caller invoking a service method.
type Principal struct {
	IsAdmin bool
}

// Slot represents a bookable time interval exposed by the application services.
type Slot struct {
	ID        string
	Start     time.Time
	End       time.Time
	Available bool
	Occupant  string
	Location  string
	Recurring bool
	SeriesID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	Start time.Time
	End   time.Time
	Name  string
	// Location may be omitted; the overlap resolver then infers it from the
	// available slots the booking touches.
	Location string
	// Weekly requests expansion of the booking into a weekly series up to
	// the configured term end.
	Weekly bool
}

// BookingOutcome reports the result of a successful booking.
type BookingOutcome struct {
	// Slot is the seed slot now carrying the booking.
	Slot Slot
	// Action is one of "updated", "booked_existing", or "created".
	Action string
	// Children holds the weekly occurrences booked for a recurring request.
	Children []Slot
	// SkippedStarts lists occurrence start times that were not booked
	// because an existing booking already claimed the interval.
	SkippedStarts []time.Time
}

// SlotDescriptor describes one desired slot in a bulk reconciliation. An
// empty ID marks the descriptor as a new slot to insert.
type SlotDescriptor struct {
	ID        string
	Start     time.Time
	End       time.Time
	Available bool
	Occupant  string
	Location  string
	Recurring bool
}

// ReconcileResult reports how many descriptors a reconciliation applied.
type ReconcileResult struct {
	Processed int
}

// Session represents an authenticated administrator session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
