package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/timeslot-scheduler/internal/booking"
	"github.com/example/timeslot-scheduler/internal/persistence"
	"github.com/example/timeslot-scheduler/internal/recurrence"
)

// Notifier delivers a best-effort booking notification. Failures are logged
// and never influence the booking result.
type Notifier interface {
	NotifyBooking(ctx context.Context, occupant string, start, end time.Time, location string) error
}

// namePattern is the allow-listed character class for occupant names:
// letters, digits, whitespace, and a small punctuation set.
var namePattern = regexp.MustCompile(`^[\p{L}\p{N}\s'()\[\],&-]+$`)

// BookingService orchestrates validation, overlap resolution, recurrence
// expansion, and persistence for booking requests.
type BookingService struct {
	store       persistence.SlotStore
	resolver    *booking.Resolver
	engine      *recurrence.Engine
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	termEnd     time.Time
	logger      *slog.Logger
	// notifyAsync is disabled in tests so notification delivery can be
	// observed synchronously.
	notifyAsync bool
}

// NewBookingService wires dependencies for booking operations. termEnd is
// the inclusive boundary for weekly recurrence expansion.
func NewBookingService(store persistence.SlotStore, engine *recurrence.Engine, notifier Notifier, idGenerator func() string, now func() time.Time, termEnd time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		store:       store,
		resolver:    booking.NewResolver(idGenerator, now),
		engine:      engine,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		termEnd:     termEnd,
		logger:      defaultLogger(logger),
		notifyAsync: true,
	}
}

// Book reserves the requested interval.
//
// The whole operation runs in one store transaction: overlap resolution and,
// for weekly requests, resolver-mediated booking of each generated
// occurrence. Occurrences that collide with an existing booking are skipped
// and reported in the outcome rather than failing the booking; every other
// persistence failure rolls the entire operation back.
func (s *BookingService) Book(ctx context.Context, input BookingInput) (BookingOutcome, error) {
	if s == nil || s.store == nil {
		return BookingOutcome{}, fmt.Errorf("BookingService is not configured")
	}

	logger := serviceLogger(ctx, s.logger, "booking", "book")

	input, vErr := normalizeBookingInput(input)
	if vErr.HasErrors() {
		return BookingOutcome{}, vErr
	}

	var outcome BookingOutcome
	err := s.store.WithinTx(ctx, func(tx persistence.SlotTx) error {
		result, err := s.resolver.Resolve(ctx, tx, booking.Request{
			Start:    input.Start,
			End:      input.End,
			Occupant: input.Name,
			Location: input.Location,
		})
		if err != nil {
			return err
		}

		seed := result.Slot
		outcome.Action = string(result.Action)

		if input.Weekly {
			seed, err = s.expandWeekly(ctx, tx, seed, &outcome)
			if err != nil {
				return err
			}
		}

		outcome.Slot = fromPersistenceSlot(seed)
		return nil
	})
	if err != nil {
		return BookingOutcome{}, mapBookingError(err)
	}

	logger.InfoContext(ctx, "booking committed",
		"slot_id", outcome.Slot.ID,
		"action", outcome.Action,
		"children", len(outcome.Children),
		"skipped", len(outcome.SkippedStarts),
	)

	s.notify(ctx, outcome.Slot)

	return outcome, nil
}

// expandWeekly marks the seed as the head of a weekly series and books each
// generated occurrence through the overlap resolver.
func (s *BookingService) expandWeekly(ctx context.Context, tx persistence.SlotTx, seed persistence.Slot, outcome *BookingOutcome) (persistence.Slot, error) {
	seriesID := s.idGenerator()

	seed.Recurring = true
	seed.SeriesID = &seriesID
	seed.UpdatedAt = s.now()
	if err := tx.UpdateSlot(ctx, seed); err != nil {
		return persistence.Slot{}, err
	}

	occurrences, err := s.engine.ExpandWeekly(seed.Start, seed.End, s.termEnd)
	if err != nil {
		return persistence.Slot{}, err
	}

	occupant := ""
	if seed.Occupant != nil {
		occupant = *seed.Occupant
	}
	location := ""
	if seed.Location != nil {
		location = *seed.Location
	}

	for _, occ := range occurrences {
		result, err := s.resolver.Resolve(ctx, tx, booking.Request{
			Start:    occ.Start,
			End:      occ.End,
			Occupant: occupant,
			Location: location,
		})
		if err != nil {
			var conflict *booking.ConflictError
			if errors.As(err, &conflict) {
				outcome.SkippedStarts = append(outcome.SkippedStarts, occ.Start)
				continue
			}
			return persistence.Slot{}, err
		}

		child := result.Slot
		child.Recurring = true
		child.SeriesID = &seriesID
		child.UpdatedAt = s.now()
		if err := tx.UpdateSlot(ctx, child); err != nil {
			return persistence.Slot{}, err
		}
		outcome.Children = append(outcome.Children, fromPersistenceSlot(child))
	}

	return seed, nil
}

// notify delivers the booking notification exactly once per successful
// top-level booking. Delivery is best-effort and never blocks the caller.
func (s *BookingService) notify(ctx context.Context, slot Slot) {
	if s.notifier == nil {
		return
	}

	deliver := func(ctx context.Context) {
		if err := s.notifier.NotifyBooking(ctx, slot.Occupant, slot.Start, slot.End, slot.Location); err != nil {
			serviceLogger(ctx, s.logger, "booking", "notify").ErrorContext(ctx,
				"booking notification failed", "slot_id", slot.ID, "error", err)
		}
	}

	if s.notifyAsync {
		go deliver(context.WithoutCancel(ctx))
		return
	}
	deliver(ctx)
}

func normalizeBookingInput(input BookingInput) (BookingInput, *ValidationError) {
	vErr := &ValidationError{}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.End.After(input.Start) {
		vErr.add("time", "start must be before end")
	}

	input.Name = strings.TrimSpace(input.Name)
	switch {
	case input.Name == "":
		vErr.add("name", "name is required")
	case utf8.RuneCountInString(input.Name) > 100:
		vErr.add("name", "name must be at most 100 characters")
	case !namePattern.MatchString(input.Name):
		vErr.add("name", "name contains unsupported characters")
	}

	input.Location = strings.TrimSpace(input.Location)
	if input.Location != "" {
		if utf8.RuneCountInString(input.Location) > 200 {
			vErr.add("location", "location must be at most 200 characters")
		}
		if strings.ContainsAny(input.Location, "<>") {
			vErr.add("location", "location must not contain angle brackets")
		}
	}

	return input, vErr
}

func mapBookingError(err error) error {
	if err == nil {
		return nil
	}

	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		return err
	}
	if errors.Is(err, booking.ErrMissingLocation) {
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}

	return &StorageError{Err: err}
}

func fromPersistenceSlot(slot persistence.Slot) Slot {
	out := Slot{
		ID:        slot.ID,
		Start:     slot.Start,
		End:       slot.End,
		Available: slot.Available,
		Recurring: slot.Recurring,
		CreatedAt: slot.CreatedAt,
		UpdatedAt: slot.UpdatedAt,
	}
	if slot.Occupant != nil {
		out.Occupant = *slot.Occupant
	}
	if slot.Location != nil {
		out.Location = *slot.Location
	}
	if slot.SeriesID != nil {
		out.SeriesID = *slot.SeriesID
	}
	return out
}
