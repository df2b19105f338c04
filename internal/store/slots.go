package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ringbook/internal/models"
)

// ListAvailable returns up to limit available slots ordered by slot time.
// A limit <= 0 returns all available slots. Never mutates state; an empty
// result is a plain empty slice, not an error.
func (db *DB) ListAvailable(ctx context.Context, limit int) ([]models.Slot, error) {
	query := `
		SELECT id, slot_time, booked, call_sid, created_at
		FROM slots
		WHERE booked = 0
		ORDER BY slot_time`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	slots := make([]models.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("list available slots: %w: %w", ErrStoreUnavailable, err)
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list available slots: %w: %w", ErrStoreUnavailable, err)
	}
	return slots, nil
}

// GetSlot returns a slot by ID.
func (db *DB) GetSlot(ctx context.Context, slotID int64) (*models.Slot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, slot_time, booked, call_sid, created_at
		FROM slots
		WHERE id = ?`,
		slotID,
	)
	s, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %d: %w: %w", slotID, ErrStoreUnavailable, err)
	}
	return s, nil
}

// Reserve atomically transitions a slot from available to booked and records
// the holder reference. The WHERE clause carries the availability check, so
// concurrent callers racing on the same slot can never both succeed: exactly
// one UPDATE matches a row. Returns false when the slot is missing or already
// booked.
func (db *DB) Reserve(ctx context.Context, slotID int64, holderRef string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE slots
		SET booked = 1, call_sid = ?
		WHERE id = ? AND booked = 0`,
		holderRef, slotID,
	)
	if err != nil {
		return false, fmt.Errorf("reserve slot %d: %w: %w", slotID, ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve slot %d: %w: %w", slotID, ErrStoreUnavailable, err)
	}
	if affected != 1 {
		return false, nil
	}

	db.logger.Info().
		Int64("slot_id", slotID).
		Str("holder", holderRef).
		Msg("slot reserved")
	return true, nil
}

// ListBooked returns all booked slots ordered by slot time, for the audit export.
func (db *DB) ListBooked(ctx context.Context) ([]models.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slot_time, booked, call_sid, created_at
		FROM slots
		WHERE booked = 1
		ORDER BY slot_time`,
	)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	slots := make([]models.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("list booked slots: %w: %w", ErrStoreUnavailable, err)
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// CountAvailable returns the number of available slots. Used by the health surface.
func (db *DB) CountAvailable(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE booked = 0`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count available slots: %w: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

// SeedSlots inserts slots for the given times. Slots are normally provisioned
// externally; this helper exists for development setups and tests.
func (db *DB) SeedSlots(ctx context.Context, times []time.Time) error {
	for _, ts := range times {
		_, err := db.ExecContext(ctx,
			`INSERT INTO slots (slot_time, booked) VALUES (?, 0)`,
			ts.UTC(),
		)
		if err != nil {
			return fmt.Errorf("seed slot %s: %w", ts, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var s models.Slot
	var callSID sql.NullString
	if err := row.Scan(&s.ID, &s.SlotTime, &s.Booked, &callSID, &s.CreatedAt); err != nil {
		return nil, err
	}
	if callSID.Valid {
		s.CallSID = &callSID.String
	}
	return &s, nil
}
