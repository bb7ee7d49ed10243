package repository

import (
	"context"
	"database/sql"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// CalendarRepo holds per-date open/closed overrides. A date with no row
// falls back to the weekday rule in the booking package.
type CalendarRepo struct{ db *sql.DB }

func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{db: db} }

// OpenOverride reports whether the shop has an explicit open/closed
// entry for a date. found is false when the date has no override.
func (r *CalendarRepo) OpenOverride(ctx context.Context, date string) (bool, bool, error) {
	var isOpen bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_open FROM business_calendar WHERE calendar_date = ?`, date).Scan(&isOpen)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return isOpen, true, nil
}

// Upsert records or replaces the override for a date.
func (r *CalendarRepo) Upsert(ctx context.Context, day model.CalendarDay) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO business_calendar (calendar_date, is_open, note)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE is_open = VALUES(is_open), note = VALUES(note)`,
		day.Date, day.IsOpen, day.Note)
	return err
}

// List returns overrides dated fromDate or later in date order.
func (r *CalendarRepo) List(ctx context.Context, fromDate string) ([]model.CalendarDay, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, calendar_date, is_open, note, created_at
		 FROM business_calendar WHERE calendar_date >= ? ORDER BY calendar_date`, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CalendarDay, 0)
	for rows.Next() {
		var d model.CalendarDay
		if err := rows.Scan(&d.ID, &d.Date, &d.IsOpen, &d.Note, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes an override so the weekday rule applies again.
func (r *CalendarRepo) Delete(ctx context.Context, date string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM business_calendar WHERE calendar_date = ?`, date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
