package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeslot-scheduler/internal/interval"
	"github.com/example/timeslot-scheduler/internal/persistence"
)

// Action describes how a booking request was satisfied.
type Action string

const (
	// ActionUpdated means an exactly matching booked slot was overwritten in place.
	ActionUpdated Action = "updated"
	// ActionBookedExisting means an exactly matching available slot was converted in place.
	ActionBookedExisting Action = "booked_existing"
	// ActionCreated means a new booked slot was inserted after resolving partial overlaps.
	ActionCreated Action = "created"
)

// Request is a validated booking request handed to the resolver.
type Request struct {
	Start    time.Time
	End      time.Time
	Occupant string
	// Location may be empty, in which case the resolver infers it from the
	// overlapping available slots.
	Location string
}

// Result reports the slot that now carries the booking.
type Result struct {
	Slot   persistence.Slot
	Action Action
}

// ConflictError reports booked slots that intersect the requested interval
// without matching it exactly. No mutation occurred.
type ConflictError struct {
	Slots []persistence.Slot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking: interval conflicts with %d booked slot(s)", len(e.Slots))
}

// ErrMissingLocation indicates the request omitted a location and the
// overlapping available slots do not agree on a single one.
var ErrMissingLocation = errors.New("booking: location required and not inferable")

// Resolver reconciles a requested booking interval against the stored slot
// set. All mutations it issues happen through the supplied transaction view,
// so a resolution commits or rolls back as a unit.
type Resolver struct {
	newID func() string
	now   func() time.Time
}

// NewResolver wires the identity and time sources used for inserted slots.
func NewResolver(newID func() string, now func() time.Time) *Resolver {
	if newID == nil {
		newID = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{newID: newID, now: now}
}

// Resolve books the requested interval.
//
// The decision sequence over the slots intersecting the target:
//  1. A booked slot exactly matching the target is overwritten in place
//     (idempotent re-booking).
//  2. Any other booked overlap fails with ConflictError, reporting every
//     conflicting slot.
//  3. A missing location is inferred when the overlapping available slots
//     share exactly one distinct non-empty location; otherwise
//     ErrMissingLocation.
//  4. An available slot exactly matching the target is converted in place.
//  5. Otherwise partial available overlaps are deleted, shrunk, or split so
//     their non-overlapping remainders stay available, and a fresh booked
//     slot is inserted for exactly the target.
func (r *Resolver) Resolve(ctx context.Context, tx persistence.SlotTx, req Request) (Result, error) {
	target, err := interval.New(req.Start, req.End)
	if err != nil {
		return Result{}, err
	}

	overlapping, err := tx.FindOverlapping(ctx, target.Start, target.End)
	if err != nil {
		return Result{}, err
	}

	// Booked slots are pairwise disjoint, so at most one of them can match
	// the target exactly; any other booked overlap is a conflict.
	var conflicts []persistence.Slot
	for _, slot := range overlapping {
		if slot.Available {
			continue
		}
		if target.Equal(slotInterval(slot)) {
			return r.rebook(ctx, tx, slot, req)
		}
		conflicts = append(conflicts, slot)
	}
	if len(conflicts) > 0 {
		return Result{}, &ConflictError{Slots: conflicts}
	}

	location := req.Location
	if location == "" {
		location, err = inferLocation(overlapping)
		if err != nil {
			return Result{}, err
		}
	}

	for _, slot := range overlapping {
		if target.Equal(slotInterval(slot)) {
			return r.convert(ctx, tx, slot, req.Occupant, location)
		}
	}

	if err := r.resolvePartialOverlaps(ctx, tx, overlapping, target); err != nil {
		return Result{}, err
	}

	now := r.now()
	occupant := req.Occupant
	booked := persistence.Slot{
		ID:        r.newID(),
		Start:     target.Start,
		End:       target.End,
		Available: false,
		Occupant:  &occupant,
		Location:  &location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.InsertSlot(ctx, booked); err != nil {
		return Result{}, err
	}

	return Result{Slot: booked, Action: ActionCreated}, nil
}

// rebook overwrites occupant and location of an exactly matching booked
// slot, preserving its identity. An omitted location keeps the stored one.
func (r *Resolver) rebook(ctx context.Context, tx persistence.SlotTx, slot persistence.Slot, req Request) (Result, error) {
	occupant := req.Occupant
	slot.Occupant = &occupant
	if req.Location != "" {
		location := req.Location
		slot.Location = &location
	}
	slot.UpdatedAt = r.now()

	if err := tx.UpdateSlot(ctx, slot); err != nil {
		return Result{}, err
	}
	return Result{Slot: slot, Action: ActionUpdated}, nil
}

// convert flips an exactly matching available slot to booked in place.
func (r *Resolver) convert(ctx context.Context, tx persistence.SlotTx, slot persistence.Slot, occupant, location string) (Result, error) {
	slot.Available = false
	slot.Occupant = &occupant
	slot.Location = &location
	slot.Recurring = false
	slot.SeriesID = nil
	slot.UpdatedAt = r.now()

	if err := tx.UpdateSlot(ctx, slot); err != nil {
		return Result{}, err
	}
	return Result{Slot: slot, Action: ActionBookedExisting}, nil
}

// resolvePartialOverlaps trims the available slots intersecting the target so
// that only their parts outside the target remain, each still available.
func (r *Resolver) resolvePartialOverlaps(ctx context.Context, tx persistence.SlotTx, overlapping []persistence.Slot, target interval.Interval) error {
	for _, slot := range overlapping {
		s := slotInterval(slot)
		switch {
		case target.Contains(s):
			if err := tx.DeleteSlot(ctx, slot.ID); err != nil {
				return err
			}
		case s.Start.Before(target.Start) && !s.End.After(target.End):
			// Right part of the slot is claimed; keep [slot.start, target.start).
			slot.End = target.Start
			if err := r.updateRemainder(ctx, tx, slot); err != nil {
				return err
			}
		case !s.Start.Before(target.Start) && target.End.Before(s.End):
			// Left part of the slot is claimed; keep [target.end, slot.end).
			slot.Start = target.End
			if err := r.updateRemainder(ctx, tx, slot); err != nil {
				return err
			}
		default:
			// Target is strictly interior: the original record becomes the
			// left remainder and a fresh record takes the right remainder.
			right := persistence.Slot{
				ID:        r.newID(),
				Start:     target.End,
				End:       s.End,
				Available: true,
				Location:  cloneString(slot.Location),
				CreatedAt: r.now(),
				UpdatedAt: r.now(),
			}
			slot.End = target.Start
			if err := r.updateRemainder(ctx, tx, slot); err != nil {
				return err
			}
			if err := tx.InsertSlot(ctx, right); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) updateRemainder(ctx context.Context, tx persistence.SlotTx, slot persistence.Slot) error {
	slot.Occupant = nil
	slot.Recurring = false
	slot.SeriesID = nil
	slot.UpdatedAt = r.now()
	return tx.UpdateSlot(ctx, slot)
}

// inferLocation returns the single distinct non-empty location among the
// overlapping available slots, or ErrMissingLocation when zero or several
// candidates exist.
func inferLocation(overlapping []persistence.Slot) (string, error) {
	var candidate string
	for _, slot := range overlapping {
		if !slot.Available || slot.Location == nil || *slot.Location == "" {
			continue
		}
		if candidate == "" {
			candidate = *slot.Location
			continue
		}
		if candidate != *slot.Location {
			return "", ErrMissingLocation
		}
	}
	if candidate == "" {
		return "", ErrMissingLocation
	}
	return candidate, nil
}

func slotInterval(slot persistence.Slot) interval.Interval {
	return interval.Interval{Start: slot.Start, End: slot.End}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
