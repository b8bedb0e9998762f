package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/timeslot-scheduler/internal/application"
	"github.com/example/timeslot-scheduler/internal/persistence"
	"github.com/example/timeslot-scheduler/internal/testfixtures"
)

func TestApplyGridTemplate(t *testing.T) {
	template := `
slots:
  - weekday: monday
    start: "10:00"
    end: "11:00"
    location: Room A
`
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(template), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	store := testfixtures.NewMemorySlotStore()
	gen := testfixtures.NewIDGenerator("slot")
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	slots := application.NewSlotService(store, gen.NextFunc(), clock.NowFunc(), slog.Default())

	// Monday 2026-02-02 through 2026-02-16: three Mondays.
	from := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)
	termEnd := time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC)

	if err := applyGridTemplate(context.Background(), path, slots, time.UTC, termEnd, from, slog.Default()); err != nil {
		t.Fatalf("applyGridTemplate: %v", err)
	}

	stored := store.Snapshot()
	if len(stored) != 3 {
		t.Fatalf("store has %d slots, want 3", len(stored))
	}
	for _, slot := range stored {
		if !slot.Available || slot.Location == nil || *slot.Location != "Room A" {
			t.Fatalf("slot = %+v", slot)
		}
	}
}

func TestApplyGridTemplateRefusesToDropBookings(t *testing.T) {
	template := `
slots:
  - weekday: monday
    start: "10:00"
    end: "11:00"
    location: Room A
`
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(template), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	occupant := "Alice"
	booked := persistence.Slot{
		ID:        "booked-1",
		Start:     time.Date(2026, time.February, 2, 10, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.February, 2, 11, 0, 0, 0, time.UTC),
		Available: false,
		Occupant:  &occupant,
		CreatedAt: testfixtures.ReferenceTime(),
		UpdatedAt: testfixtures.ReferenceTime(),
	}
	store := testfixtures.NewMemorySlotStore(booked)
	gen := testfixtures.NewIDGenerator("slot")
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	slots := application.NewSlotService(store, gen.NextFunc(), clock.NowFunc(), slog.Default())

	from := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)
	termEnd := time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC)

	err := applyGridTemplate(context.Background(), path, slots, time.UTC, termEnd, from, slog.Default())
	if err == nil {
		t.Fatal("expected seeding to refuse while bookings exist")
	}
	if !strings.Contains(err.Error(), "booked slot") {
		t.Fatalf("error = %v", err)
	}

	stored := store.Snapshot()
	if len(stored) != 1 || stored[0].ID != "booked-1" || stored[0].Available {
		t.Fatalf("store changed despite refusal: %+v", stored)
	}
}

func TestApplyGridTemplateMissingFile(t *testing.T) {
	store := testfixtures.NewMemorySlotStore()
	gen := testfixtures.NewIDGenerator("slot")
	slots := application.NewSlotService(store, gen.NextFunc(), nil, slog.Default())

	err := applyGridTemplate(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), slots, time.UTC, time.Now().AddDate(0, 1, 0), time.Now(), slog.Default())
	if err == nil {
		t.Fatal("expected an error for a missing template file")
	}
}

func TestRandomHex(t *testing.T) {
	first := randomHex(16)
	second := randomHex(16)
	if len(first) != 32 || len(second) != 32 {
		t.Fatalf("lengths = %d, %d", len(first), len(second))
	}
	if first == second {
		t.Fatal("two generated tokens should differ")
	}
	if got := randomHex(0); len(got) != 32 {
		t.Fatalf("default length token = %q", got)
	}
}
