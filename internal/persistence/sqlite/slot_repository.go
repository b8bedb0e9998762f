package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/timeslot-scheduler/internal/persistence"
)

// timeLayout is the naive wall-clock encoding used for every stored instant.
// Values carry no zone; they are interpreted in the repository's configured
// civil timezone.
const timeLayout = "2006-01-02T15:04:05"

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SlotRepository implements persistence.SlotStore on SQLite.
type SlotRepository struct {
	pool *ConnectionPool
	q    slotQueries
}

// NewSlotRepository creates a slot repository that interprets stored
// timestamps in the given location.
func NewSlotRepository(pool *ConnectionPool, loc *time.Location) *SlotRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotRepository{
		pool: pool,
		q:    slotQueries{exec: pool.DB(), loc: loc},
	}
}

// WithinTx runs fn against a transaction-scoped view of the slot store.
func (r *SlotRepository) WithinTx(ctx context.Context, fn func(tx persistence.SlotTx) error) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&slotTxView{q: slotQueries{exec: tx, loc: r.q.loc}})
	})
}

func (r *SlotRepository) FindOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Slot, error) {
	return r.q.findOverlapping(ctx, start, end)
}

func (r *SlotRepository) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	return r.q.listSlots(ctx, filter)
}

func (r *SlotRepository) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	return r.q.getSlot(ctx, id)
}

func (r *SlotRepository) InsertSlot(ctx context.Context, slot persistence.Slot) error {
	return r.q.insertSlot(ctx, slot)
}

func (r *SlotRepository) UpdateSlot(ctx context.Context, slot persistence.Slot) error {
	return r.q.updateSlot(ctx, slot)
}

func (r *SlotRepository) DeleteSlot(ctx context.Context, id string) error {
	return r.q.deleteSlot(ctx, id)
}

// slotTxView adapts slotQueries bound to a *sql.Tx to persistence.SlotTx.
type slotTxView struct {
	q slotQueries
}

func (v *slotTxView) FindOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Slot, error) {
	return v.q.findOverlapping(ctx, start, end)
}

func (v *slotTxView) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	return v.q.listSlots(ctx, filter)
}

func (v *slotTxView) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	return v.q.getSlot(ctx, id)
}

func (v *slotTxView) InsertSlot(ctx context.Context, slot persistence.Slot) error {
	return v.q.insertSlot(ctx, slot)
}

func (v *slotTxView) UpdateSlot(ctx context.Context, slot persistence.Slot) error {
	return v.q.updateSlot(ctx, slot)
}

func (v *slotTxView) DeleteSlot(ctx context.Context, id string) error {
	return v.q.deleteSlot(ctx, id)
}

// slotQueries issues slot statements against either the pool or a transaction.
type slotQueries struct {
	exec executor
	loc  *time.Location
}

const slotColumns = "id, start_time, end_time, available, occupant, location, recurring, series_id, created_at, updated_at"

func (q slotQueries) findOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Slot, error) {
	// Half-open overlap: slot.start < end AND start < slot.end.
	query := fmt.Sprintf(`
		SELECT %s FROM slots
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`, slotColumns)

	rows, err := q.exec.QueryContext(ctx, query, q.encode(end), q.encode(start))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return q.scanSlots(rows)
}

func (q slotQueries) listSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots", slotColumns)

	var conditions []string
	var args []any

	if filter.From != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, q.encode(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, q.encode(*filter.To))
	}
	if filter.BookedOnly {
		conditions = append(conditions, "available = 0")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := q.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return q.scanSlots(rows)
}

func (q slotQueries) getSlot(ctx context.Context, id string) (persistence.Slot, error) {
	if id == "" {
		return persistence.Slot{}, persistence.ErrNotFound
	}

	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = ?", slotColumns)
	row := q.exec.QueryRowContext(ctx, query, id)

	slot, err := q.scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Slot{}, persistence.ErrNotFound
		}
		return persistence.Slot{}, mapError(err)
	}
	return slot, nil
}

func (q slotQueries) insertSlot(ctx context.Context, slot persistence.Slot) error {
	if slot.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := fmt.Sprintf("INSERT INTO slots (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", slotColumns)

	_, err := q.exec.ExecContext(ctx, query,
		slot.ID,
		q.encode(slot.Start),
		q.encode(slot.End),
		boolToInt(slot.Available),
		nullString(slot.Occupant),
		nullString(slot.Location),
		boolToInt(slot.Recurring),
		nullString(slot.SeriesID),
		q.encode(slot.CreatedAt),
		q.encode(slot.UpdatedAt),
	)
	return mapError(err)
}

func (q slotQueries) updateSlot(ctx context.Context, slot persistence.Slot) error {
	if slot.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE slots
		SET start_time = ?, end_time = ?, available = ?, occupant = ?, location = ?, recurring = ?, series_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := q.exec.ExecContext(ctx, query,
		q.encode(slot.Start),
		q.encode(slot.End),
		boolToInt(slot.Available),
		nullString(slot.Occupant),
		nullString(slot.Location),
		boolToInt(slot.Recurring),
		nullString(slot.SeriesID),
		q.encode(slot.UpdatedAt),
		slot.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (q slotQueries) deleteSlot(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := q.exec.ExecContext(ctx, "DELETE FROM slots WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q slotQueries) scanSlot(row rowScanner) (persistence.Slot, error) {
	var slot persistence.Slot
	var startStr, endStr, createdStr, updatedStr string
	var available, recurring int
	var occupant, location, seriesID sql.NullString

	err := row.Scan(
		&slot.ID,
		&startStr,
		&endStr,
		&available,
		&occupant,
		&location,
		&recurring,
		&seriesID,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Slot{}, err
	}

	slot.Available = available != 0
	slot.Recurring = recurring != 0
	if occupant.Valid {
		slot.Occupant = &occupant.String
	}
	if location.Valid {
		slot.Location = &location.String
	}
	if seriesID.Valid {
		slot.SeriesID = &seriesID.String
	}

	if slot.Start, err = q.decode(startStr); err != nil {
		return persistence.Slot{}, fmt.Errorf("sqlite: parse start_time: %w", err)
	}
	if slot.End, err = q.decode(endStr); err != nil {
		return persistence.Slot{}, fmt.Errorf("sqlite: parse end_time: %w", err)
	}
	if slot.CreatedAt, err = q.decode(createdStr); err != nil {
		return persistence.Slot{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if slot.UpdatedAt, err = q.decode(updatedStr); err != nil {
		return persistence.Slot{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return slot, nil
}

func (q slotQueries) scanSlots(rows *sql.Rows) ([]persistence.Slot, error) {
	var slots []persistence.Slot
	for rows.Next() {
		slot, err := q.scanSlot(rows)
		if err != nil {
			return nil, mapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return slots, nil
}

func (q slotQueries) encode(t time.Time) string {
	return t.In(q.loc).Format(timeLayout)
}

func (q slotQueries) decode(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, value, q.loc)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// mapError converts SQLite driver errors to persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "CHECK constraint failed"):
		return persistence.ErrConstraintViolation
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return err
}
