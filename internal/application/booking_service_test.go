package application

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/example/timeslot-scheduler/internal/booking"
	"github.com/example/timeslot-scheduler/internal/persistence"
	"github.com/example/timeslot-scheduler/internal/recurrence"
	"github.com/example/timeslot-scheduler/internal/testfixtures"
)

type notifierStub struct {
	calls []notification
	err   error
}

type notification struct {
	occupant string
	start    time.Time
	end      time.Time
	location string
}

func (n *notifierStub) NotifyBooking(ctx context.Context, occupant string, start, end time.Time, location string) error {
	n.calls = append(n.calls, notification{occupant: occupant, start: start, end: end, location: location})
	return n.err
}

func newBookingService(store *testfixtures.MemorySlotStore, notifier Notifier, termEnd time.Time) *BookingService {
	gen := testfixtures.NewIDGenerator("slot")
	clock := testfixtures.NewClock(time.Time{})
	svc := NewBookingService(store, recurrence.NewEngine(time.UTC), notifier, gen.NextFunc(), clock.NowFunc(), termEnd, slog.Default())
	svc.notifyAsync = false
	return svc
}

func availableFixture(id string, start, end time.Time, location string) persistence.Slot {
	slot := persistence.Slot{
		ID:        id,
		Start:     start,
		End:       end,
		Available: true,
		CreatedAt: testfixtures.ReferenceTime(),
		UpdatedAt: testfixtures.ReferenceTime(),
	}
	if location != "" {
		slot.Location = &location
	}
	return slot
}

func TestBookValidatesInput(t *testing.T) {
	store := testfixtures.NewMemorySlotStore()
	svc := newBookingService(store, nil, testfixtures.DayOffset(testfixtures.ReferenceTime(), 90))

	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)

	cases := []struct {
		name  string
		input BookingInput
		field string
	}{
		{
			name:  "missing name",
			input: BookingInput{Start: start, End: end},
			field: "name",
		},
		{
			name:  "name with angle brackets",
			input: BookingInput{Start: start, End: end, Name: "<script>"},
			field: "name",
		},
		{
			name:  "inverted interval",
			input: BookingInput{Start: end, End: start, Name: "Alice"},
			field: "time",
		},
		{
			name:  "missing start",
			input: BookingInput{End: end, Name: "Alice"},
			field: "start",
		},
		{
			name:  "location with markup",
			input: BookingInput{Start: start, End: end, Name: "Alice", Location: "<b>Room</b>"},
			field: "location",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tc.input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on field %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestBookAcceptsPermittedPunctuation(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, "Room A"))
	svc := newBookingService(store, nil, testfixtures.DayOffset(start, 90))

	outcome, err := svc.Book(context.Background(), BookingInput{
		Start: start,
		End:   end,
		Name:  "O'Brien & Smith (parents), Lee [guardian]",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Slot.Occupant != "O'Brien & Smith (parents), Lee [guardian]" {
		t.Fatalf("occupant = %q", outcome.Slot.Occupant)
	}
}

func TestBookCountsNameLengthInRunes(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, "Room A"))
	svc := newBookingService(store, nil, testfixtures.DayOffset(start, 90))

	// 100 three-byte characters stay within the limit.
	name := strings.Repeat("山", 100)
	if _, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: name}); err != nil {
		t.Fatalf("Book: %v", err)
	}

	_, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: name + "川"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["name"]; !ok {
		t.Fatalf("expected error on field \"name\", got %v", vErr.FieldErrors)
	}
}

func TestBookConvertsSlotAndNotifiesOnce(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, "Room A"))
	notifier := &notifierStub{}
	svc := newBookingService(store, notifier, testfixtures.DayOffset(start, 90))

	outcome, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: "Alice"})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Action != "booked_existing" {
		t.Fatalf("action = %q", outcome.Action)
	}
	if outcome.Slot.ID != "slot-1" {
		t.Fatalf("identity not preserved: %s", outcome.Slot.ID)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier called %d times, want exactly 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.occupant != "Alice" || call.location != "Room A" || !call.start.Equal(start) {
		t.Fatalf("notification payload wrong: %+v", call)
	}
}

func TestBookConflictDoesNotNotify(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	occupant := "Bob"
	blocked := availableFixture("booked-1", testfixtures.SlotTime(10, 30), testfixtures.SlotTime(11, 30), "Room A")
	blocked.Available = false
	blocked.Occupant = &occupant

	store := testfixtures.NewMemorySlotStore(blocked)
	before := store.Snapshot()
	notifier := &notifierStub{}
	svc := newBookingService(store, notifier, testfixtures.DayOffset(start, 90))

	_, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: "Alice", Location: "Room A"})

	var conflict *booking.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(notifier.calls) != 0 {
		t.Fatal("failed booking must not notify")
	}
	if !reflect.DeepEqual(before, store.Snapshot()) {
		t.Fatal("conflict must leave the store unchanged")
	}
}

func TestBookWeeklyBooksGridOccurrences(t *testing.T) {
	seedStart := testfixtures.SlotTime(10, 0)
	seedEnd := testfixtures.SlotTime(11, 0)
	termEnd := testfixtures.DayOffset(seedStart, 14)

	store := testfixtures.NewMemorySlotStore(
		availableFixture("wk-0", seedStart, seedEnd, "Room A"),
		availableFixture("wk-1", testfixtures.DayOffset(seedStart, 7), testfixtures.DayOffset(seedEnd, 7), "Room A"),
		availableFixture("wk-2", testfixtures.DayOffset(seedStart, 14), testfixtures.DayOffset(seedEnd, 14), "Room A"),
	)
	notifier := &notifierStub{}
	svc := newBookingService(store, notifier, termEnd)

	outcome, err := svc.Book(context.Background(), BookingInput{
		Start:  seedStart,
		End:    seedEnd,
		Name:   "Alice",
		Weekly: true,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if !outcome.Slot.Recurring {
		t.Fatal("seed should be marked recurring")
	}
	if outcome.Slot.SeriesID == "" {
		t.Fatal("seed should carry a series id")
	}
	if len(outcome.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(outcome.Children))
	}
	for _, child := range outcome.Children {
		if !child.Recurring || child.SeriesID != outcome.Slot.SeriesID {
			t.Fatalf("child not linked to series: %+v", child)
		}
		if child.Occupant != "Alice" || child.Location != "Room A" {
			t.Fatalf("child booking fields wrong: %+v", child)
		}
	}

	// Grid slots were claimed in place, not duplicated.
	if got := len(store.Snapshot()); got != 3 {
		t.Fatalf("store has %d slots, want 3", got)
	}

	// One notification for the whole series, not one per child.
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier called %d times, want exactly 1", len(notifier.calls))
	}
}

func TestBookWeeklySkipsConflictingOccurrence(t *testing.T) {
	seedStart := testfixtures.SlotTime(10, 0)
	seedEnd := testfixtures.SlotTime(11, 0)
	termEnd := testfixtures.DayOffset(seedStart, 14)

	occupant := "Bob"
	taken := availableFixture("taken", testfixtures.DayOffset(seedStart, 7), testfixtures.DayOffset(seedEnd, 7), "Room A")
	taken.Available = false
	taken.Occupant = &occupant
	// Shift so the existing booking overlaps without matching exactly.
	taken.Start = taken.Start.Add(30 * time.Minute)
	taken.End = taken.End.Add(30 * time.Minute)

	store := testfixtures.NewMemorySlotStore(
		availableFixture("wk-0", seedStart, seedEnd, "Room A"),
		taken,
		availableFixture("wk-2", testfixtures.DayOffset(seedStart, 14), testfixtures.DayOffset(seedEnd, 14), "Room A"),
	)
	svc := newBookingService(store, nil, termEnd)

	outcome, err := svc.Book(context.Background(), BookingInput{
		Start:  seedStart,
		End:    seedEnd,
		Name:   "Alice",
		Weekly: true,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if len(outcome.Children) != 1 {
		t.Fatalf("got %d children, want 1", len(outcome.Children))
	}
	if len(outcome.SkippedStarts) != 1 {
		t.Fatalf("got %d skipped starts, want 1", len(outcome.SkippedStarts))
	}
	if !outcome.SkippedStarts[0].Equal(testfixtures.DayOffset(seedStart, 7)) {
		t.Fatalf("skipped start = %v", outcome.SkippedStarts[0])
	}
}

func TestBookStorageFailureRollsBack(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, "Room A"))
	store.FailWith = errors.New("disk full")
	before := store.Snapshot()
	notifier := &notifierStub{}
	svc := newBookingService(store, notifier, testfixtures.DayOffset(start, 90))

	_, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: "Alice"})

	var sErr *StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !reflect.DeepEqual(before, store.Snapshot()) {
		t.Fatal("failed booking must leave the store unchanged")
	}
	if len(notifier.calls) != 0 {
		t.Fatal("failed booking must not notify")
	}
}

func TestBookNotificationFailureDoesNotFailBooking(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, "Room A"))
	notifier := &notifierStub{err: errors.New("smtp down")}
	svc := newBookingService(store, notifier, testfixtures.DayOffset(start, 90))

	if _, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: "Alice"}); err != nil {
		t.Fatalf("notification failure must not fail the booking: %v", err)
	}
}

func TestBookMissingLocationPassesThrough(t *testing.T) {
	start := testfixtures.SlotTime(10, 0)
	end := testfixtures.SlotTime(11, 0)
	store := testfixtures.NewMemorySlotStore(availableFixture("slot-1", start, end, ""))
	svc := newBookingService(store, nil, testfixtures.DayOffset(start, 90))

	_, err := svc.Book(context.Background(), BookingInput{Start: start, End: end, Name: "Alice"})
	if !errors.Is(err, booking.ErrMissingLocation) {
		t.Fatalf("expected ErrMissingLocation, got %v", err)
	}
}
