package repository

import (
	"context"
	"database/sql"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// CapacityRepo is the slot capacity ledger over the `capacity` table.
// The hot path (one slot, many concurrent bookers) resolves with a
// single conditional UPDATE rather than a read-modify-write pair, so
// two overlapping Reserve calls can never push reserved_count past
// total_capacity. Rows are created lazily; the UNIQUE key on
// (reservation_date, time_slot) makes concurrent creation safe.
type CapacityRepo struct {
	db              *sql.DB
	defaultCapacity uint32
}

// NewCapacityRepo binds the repo to a database and the configured
// per-slot capacity used when a slot is first touched.
func NewCapacityRepo(db *sql.DB, defaultCapacity uint32) *CapacityRepo {
	return &CapacityRepo{db: db, defaultCapacity: defaultCapacity}
}

// EnsureSlot idempotently creates the capacity row for a slot and
// returns its current state. Concurrent calls for the same new key
// produce exactly one row.
func (r *CapacityRepo) EnsureSlot(ctx context.Context, key model.SlotKey) (model.CapacityRecord, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO capacity (reservation_date, time_slot, total_capacity, reserved_count)
		 VALUES (?, ?, ?, 0)
		 ON DUPLICATE KEY UPDATE id = id`,
		key.Date, key.Time, r.defaultCapacity)
	if err != nil {
		return model.CapacityRecord{}, err
	}
	return r.get(ctx, key)
}

// Availability reads the slot state, creating the row if missing so the
// caller always observes a valid record instead of absence.
func (r *CapacityRepo) Availability(ctx context.Context, key model.SlotKey) (model.CapacityRecord, error) {
	rec, err := r.get(ctx, key)
	if err == sql.ErrNoRows {
		return r.EnsureSlot(ctx, key)
	}
	return rec, err
}

// Reserve atomically checks reserved_count+qty <= total_capacity and
// increments. The conditional UPDATE is the single serialization point
// for a slot; zero affected rows means the slot cannot take qty, and
// the remaining count is read back for the caller's error message.
func (r *CapacityRepo) Reserve(ctx context.Context, key model.SlotKey, qty uint32) (uint32, bool, error) {
	if _, err := r.EnsureSlot(ctx, key); err != nil {
		return 0, false, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE capacity
		 SET reserved_count = reserved_count + ?
		 WHERE reservation_date = ? AND time_slot = ? AND reserved_count + ? <= total_capacity`,
		qty, key.Date, key.Time, qty)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		rec, err := r.get(ctx, key)
		if err != nil {
			return 0, false, err
		}
		return rec.Available(), false, nil
	}
	return 0, true, nil
}

// Release decrements the reserved count by qty, floored at zero. Used
// when a reservation holding capacity in this slot is cancelled, and as
// the compensating step when a persist fails after a reserve.
func (r *CapacityRepo) Release(ctx context.Context, key model.SlotKey, qty uint32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE capacity
		 SET reserved_count = IF(reserved_count > ?, reserved_count - ?, 0)
		 WHERE reservation_date = ? AND time_slot = ?`,
		qty, qty, key.Date, key.Time)
	return err
}

func (r *CapacityRepo) get(ctx context.Context, key model.SlotKey) (model.CapacityRecord, error) {
	var rec model.CapacityRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reservation_date, time_slot, total_capacity, reserved_count, created_at, updated_at
		 FROM capacity WHERE reservation_date = ? AND time_slot = ?`,
		key.Date, key.Time).Scan(
		&rec.ID, &rec.Key.Date, &rec.Key.Time, &rec.TotalCapacity, &rec.ReservedCount,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
