package persistence

import (
	"context"
	"time"
)

// SlotFilter narrows slot queries.
type SlotFilter struct {
	// From excludes slots ending at or before the given instant.
	From *time.Time
	// To excludes slots starting at or after the given instant.
	To *time.Time
	// BookedOnly restricts results to reserved slots.
	BookedOnly bool
}

// SlotTx is the view of the slot store available inside a transaction.
//
// Results of FindOverlapping and ListSlots are ordered by start time
// ascending, with the identifier as tie breaker.
type SlotTx interface {
	FindOverlapping(ctx context.Context, start, end time.Time) ([]Slot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]Slot, error)
	GetSlot(ctx context.Context, id string) (Slot, error)
	InsertSlot(ctx context.Context, slot Slot) error
	UpdateSlot(ctx context.Context, slot Slot) error
	DeleteSlot(ctx context.Context, id string) error
}

// SlotStore exposes slot persistence with a transactional entry point.
//
// WithinTx runs fn against a transaction-scoped view. All mutations issued
// through the view commit together when fn returns nil and roll back
// entirely when fn returns an error. Implementations must serialize writing
// transactions so a read-then-mutate sequence observes no concurrent
// conflicting insert before commit.
type SlotStore interface {
	SlotTx
	WithinTx(ctx context.Context, fn func(tx SlotTx) error) error
}

// SessionRepository stores administrator session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
