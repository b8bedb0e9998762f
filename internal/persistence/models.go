package persistence

import "time"

// Slot represents a single bookable time interval stored in persistence.
//
// Times are naive local wall-clock values interpreted in the service's
// configured civil timezone. The half-open range [Start, End) always
// satisfies End > Start. Booked slots (Available == false) are pairwise
// disjoint; available slots never carry an occupant.
type Slot struct {
	ID        string
	Start     time.Time
	End       time.Time
	Available bool
	Occupant  *string
	Location  *string
	Recurring bool
	SeriesID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an administrator authentication session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
