package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/timeslot-scheduler/internal/persistence"
)

// SlotService exposes slot listing, deletion, and bulk reconciliation.
type SlotService struct {
	store       persistence.SlotStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSlotService wires dependencies for slot administration.
func NewSlotService(store persistence.SlotStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SlotService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SlotService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ListSlots returns all stored slots ordered by start time.
func (s *SlotService) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]Slot, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("SlotService is not configured")
	}

	slots, err := s.store.ListSlots(ctx, filter)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, fromPersistenceSlot(slot))
	}
	return out, nil
}

// DeleteSlot removes a single slot. Administrator only.
func (s *SlotService) DeleteSlot(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("SlotService is not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	if err := s.store.DeleteSlot(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return &StorageError{Err: err}
	}

	serviceLogger(ctx, s.logger, "slots", "delete").InfoContext(ctx, "slot deleted", "slot_id", id)
	return nil
}

// Reconcile replaces the stored slot set with the caller supplied one.
//
// Descriptors carrying a known identity overwrite that slot; descriptors
// without one are inserted with a fresh identity; stored slots not
// referenced by any descriptor are deleted. An empty input is a no-op, not a
// mass deletion. The reconciler trusts the caller to submit an internally
// consistent replacement and does not check overlap invariants. The call is
// one transaction; any failure rolls back every change.
func (s *SlotService) Reconcile(ctx context.Context, principal Principal, descriptors []SlotDescriptor) (ReconcileResult, error) {
	if s == nil || s.store == nil {
		return ReconcileResult{}, fmt.Errorf("SlotService is not configured")
	}
	if !principal.IsAdmin {
		return ReconcileResult{}, ErrUnauthorized
	}

	if len(descriptors) == 0 {
		return ReconcileResult{}, nil
	}

	if vErr := validateDescriptors(descriptors); vErr.HasErrors() {
		return ReconcileResult{}, vErr
	}

	var result ReconcileResult
	err := s.store.WithinTx(ctx, func(tx persistence.SlotTx) error {
		existing, err := tx.ListSlots(ctx, persistence.SlotFilter{})
		if err != nil {
			return err
		}

		known := make(map[string]persistence.Slot, len(existing))
		for _, slot := range existing {
			known[slot.ID] = slot
		}

		referenced := make(map[string]struct{}, len(descriptors))
		now := s.now()

		for _, desc := range descriptors {
			slot := descriptorToSlot(desc, now)

			if desc.ID != "" {
				current, ok := known[desc.ID]
				if !ok {
					return persistence.ErrNotFound
				}
				referenced[desc.ID] = struct{}{}
				slot.CreatedAt = current.CreatedAt
				if err := tx.UpdateSlot(ctx, slot); err != nil {
					return err
				}
			} else {
				slot.ID = s.idGenerator()
				slot.CreatedAt = now
				if err := tx.InsertSlot(ctx, slot); err != nil {
					return err
				}
			}
			result.Processed++
		}

		for id := range known {
			if _, ok := referenced[id]; ok {
				continue
			}
			if err := tx.DeleteSlot(ctx, id); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ReconcileResult{}, ErrNotFound
		}
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return ReconcileResult{}, err
		}
		return ReconcileResult{}, &StorageError{Err: err}
	}

	serviceLogger(ctx, s.logger, "slots", "reconcile").InfoContext(ctx,
		"slot grid reconciled", "processed", result.Processed)

	return result, nil
}

func validateDescriptors(descriptors []SlotDescriptor) *ValidationError {
	vErr := &ValidationError{}
	for i, desc := range descriptors {
		field := fmt.Sprintf("slots[%d]", i)
		if desc.Start.IsZero() || desc.End.IsZero() {
			vErr.add(field, "start and end are required")
			continue
		}
		if !desc.End.After(desc.Start) {
			vErr.add(field, "start must be before end")
		}
		if !desc.Available && strings.TrimSpace(desc.Occupant) == "" {
			vErr.add(field, "booked slots require an occupant")
		}
		if utf8.RuneCountInString(desc.Occupant) > 100 {
			vErr.add(field, "occupant must be at most 100 characters")
		}
		if utf8.RuneCountInString(desc.Location) > 200 || strings.ContainsAny(desc.Location, "<>") {
			vErr.add(field, "location is invalid")
		}
	}
	return vErr
}

func descriptorToSlot(desc SlotDescriptor, now time.Time) persistence.Slot {
	slot := persistence.Slot{
		ID:        desc.ID,
		Start:     desc.Start,
		End:       desc.End,
		Available: desc.Available,
		Recurring: desc.Recurring,
		UpdatedAt: now,
	}

	occupant := strings.TrimSpace(desc.Occupant)
	location := strings.TrimSpace(desc.Location)

	// Available slots never carry an occupant.
	if !desc.Available && occupant != "" {
		slot.Occupant = &occupant
	}
	if location != "" {
		slot.Location = &location
	}
	return slot
}
