package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/timeslot-scheduler/internal/persistence"
)

// MemorySlotStore is an in-memory persistence.SlotStore used by tests.
//
// WithinTx operates on a copy of the slot map and publishes it only when the
// callback succeeds, matching the rollback semantics of the SQLite store.
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string]persistence.Slot

	// FailWith, when set, is returned by every mutating operation. Tests use
	// it to exercise storage failure paths.
	FailWith error
}

// NewMemorySlotStore seeds a store with the provided slots.
func NewMemorySlotStore(slots ...persistence.Slot) *MemorySlotStore {
	store := &MemorySlotStore{slots: make(map[string]persistence.Slot, len(slots))}
	for _, slot := range slots {
		store.slots[slot.ID] = cloneSlot(slot)
	}
	return store
}

// Snapshot returns all stored slots ordered by start time. Tests diff
// snapshots to prove an operation left the store unchanged.
func (s *MemorySlotStore) Snapshot() []persistence.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSlots(s.slots, persistence.SlotFilter{})
}

// WithinTx implements persistence.SlotStore.
func (s *MemorySlotStore) WithinTx(ctx context.Context, fn func(tx persistence.SlotTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, slots: cloneSlotMap(s.slots)}
	if err := fn(tx); err != nil {
		return err
	}
	s.slots = tx.slots
	return nil
}

func (s *MemorySlotStore) FindOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOverlapping(s.slots, start, end), nil
}

func (s *MemorySlotStore) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSlots(s.slots, filter), nil
}

func (s *MemorySlotStore) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return persistence.Slot{}, persistence.ErrNotFound
	}
	return cloneSlot(slot), nil
}

func (s *MemorySlotStore) InsertSlot(ctx context.Context, slot persistence.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.slots[slot.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (s *MemorySlotStore) UpdateSlot(ctx context.Context, slot persistence.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (s *MemorySlotStore) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.slots[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.slots, id)
	return nil
}

// memoryTx mutates a private copy of the slot map.
type memoryTx struct {
	store *MemorySlotStore
	slots map[string]persistence.Slot
}

func (t *memoryTx) FindOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Slot, error) {
	return findOverlapping(t.slots, start, end), nil
}

func (t *memoryTx) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	return sortedSlots(t.slots, filter), nil
}

func (t *memoryTx) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	slot, ok := t.slots[id]
	if !ok {
		return persistence.Slot{}, persistence.ErrNotFound
	}
	return cloneSlot(slot), nil
}

func (t *memoryTx) InsertSlot(ctx context.Context, slot persistence.Slot) error {
	if t.store.FailWith != nil {
		return t.store.FailWith
	}
	if _, ok := t.slots[slot.ID]; ok {
		return persistence.ErrDuplicate
	}
	t.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (t *memoryTx) UpdateSlot(ctx context.Context, slot persistence.Slot) error {
	if t.store.FailWith != nil {
		return t.store.FailWith
	}
	if _, ok := t.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	t.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (t *memoryTx) DeleteSlot(ctx context.Context, id string) error {
	if t.store.FailWith != nil {
		return t.store.FailWith
	}
	if _, ok := t.slots[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(t.slots, id)
	return nil
}

// MemorySessionRepository is an in-memory persistence.SessionRepository.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]persistence.Session
}

// NewMemorySessionRepository constructs an empty session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]persistence.Session)}
}

func (r *MemorySessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.Token]; ok {
		return persistence.ErrDuplicate
	}
	r.sessions[session.Token] = session
	return nil
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.sessions, token)
	return nil
}

func (r *MemorySessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, session := range r.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(r.sessions, token)
		}
	}
	return nil
}

// --- helpers ---

func findOverlapping(slots map[string]persistence.Slot, start, end time.Time) []persistence.Slot {
	matched := make(map[string]persistence.Slot)
	for id, slot := range slots {
		if slot.Start.Before(end) && start.Before(slot.End) {
			matched[id] = slot
		}
	}
	return sortedSlots(matched, persistence.SlotFilter{})
}

func sortedSlots(slots map[string]persistence.Slot, filter persistence.SlotFilter) []persistence.Slot {
	out := make([]persistence.Slot, 0, len(slots))
	for _, slot := range slots {
		if filter.From != nil && !slot.End.After(*filter.From) {
			continue
		}
		if filter.To != nil && !slot.Start.Before(*filter.To) {
			continue
		}
		if filter.BookedOnly && slot.Available {
			continue
		}
		out = append(out, cloneSlot(slot))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func cloneSlotMap(slots map[string]persistence.Slot) map[string]persistence.Slot {
	out := make(map[string]persistence.Slot, len(slots))
	for id, slot := range slots {
		out[id] = cloneSlot(slot)
	}
	return out
}

func cloneSlot(slot persistence.Slot) persistence.Slot {
	out := slot
	if slot.Occupant != nil {
		occupant := *slot.Occupant
		out.Occupant = &occupant
	}
	if slot.Location != nil {
		location := *slot.Location
		out.Location = &location
	}
	if slot.SeriesID != nil {
		seriesID := *slot.SeriesID
		out.SeriesID = &seriesID
	}
	return out
}
