package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// ReservationRepo provides CRUD over reservations plus the read-only
// aggregates the admin dashboard shows. Engine-facing methods (Create,
// Get, MarkCancelled, CountActive, ListActive) deal in model
// structs; admin-facing methods return ReservationDetail with the
// owning user's external identity joined in.
type ReservationRepo struct{ db *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, reservation_date, time_slot, menu_item_id,
	item_name, unit_price, quantity, status, created_at, updated_at`

// Create inserts a reservation and populates its id and timestamps.
// The ledger has already been charged by the time this runs; a failure
// here triggers the engine's compensating release.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations
		 (user_id, reservation_date, time_slot, menu_item_id, item_name, unit_price, quantity, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.Slot.Date, res.Slot.Time, res.MenuItemID,
		res.ItemName, res.UnitPrice, res.Quantity, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Read back DB-assigned timestamps.
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservations WHERE id = ?`, res.ID).
		Scan(&res.CreatedAt, &res.UpdatedAt)
}

// Get returns a reservation by id; found is false when no row exists.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, bool, error) {
	var res model.Reservation
	err := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id).Scan(
		&res.ID, &res.UserID, &res.Slot.Date, &res.Slot.Time, &res.MenuItemID,
		&res.ItemName, &res.UnitPrice, &res.Quantity, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Reservation{}, false, nil
	}
	if err != nil {
		return model.Reservation{}, false, err
	}
	return res, true, nil
}

// MarkCancelled flips an active reservation to cancelled. The status
// guard in the WHERE clause makes concurrent cancels race-safe: only
// one caller observes updated=true.
func (r *ReservationRepo) MarkCancelled(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status IN (?, ?)`,
		model.StatusCancelled, id, model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountActive counts the user's active (pending/confirmed) reservations
// dated fromDate or later. Backs the per-user booking cap.
func (r *ReservationRepo) CountActive(ctx context.Context, userID uint64, fromDate string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE user_id = ? AND reservation_date >= ? AND status IN (?, ?)`,
		userID, fromDate, model.StatusPending, model.StatusConfirmed).Scan(&n)
	return n, err
}

// ListActive returns the user's upcoming active reservations ordered by
// slot. Backs the check and cancel conversation flows.
func (r *ReservationRepo) ListActive(ctx context.Context, userID uint64, fromDate string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE user_id = ? AND reservation_date >= ? AND status IN (?, ?)
		 ORDER BY reservation_date, time_slot`,
		userID, fromDate, model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.Slot.Date, &res.Slot.Time, &res.MenuItemID,
			&res.ItemName, &res.UnitPrice, &res.Quantity, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ReservationDetail is the admin view of a reservation: the row plus
// the owning user's external identity.
type ReservationDetail struct {
	ID             uint64    `json:"id"`
	UserID         uint64    `json:"user_id"`
	UserExternalID string    `json:"user_external_id"`
	Date           string    `json:"reservation_date"`
	TimeSlot       string    `json:"time_slot"`
	MenuItemID     uint64    `json:"menu_item_id"`
	ItemName       string    `json:"item_name"`
	UnitPrice      uint32    `json:"unit_price"`
	Quantity       uint32    `json:"quantity"`
	TotalPrice     uint32    `json:"total_price"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListFilter narrows List. Zero values mean "no constraint"; From and
// To are inclusive YYYY-MM-DD bounds on the reservation date.
type ListFilter struct {
	Status string
	From   string
	To     string
}

// List returns reservations for the admin dashboard, newest slot first.
func (r *ReservationRepo) List(ctx context.Context, f ListFilter) ([]ReservationDetail, error) {
	query := `SELECT r.id, r.user_id, u.external_id, r.reservation_date, r.time_slot,
	          r.menu_item_id, r.item_name, r.unit_price, r.quantity, r.status,
	          r.created_at, r.updated_at
	          FROM reservations r
	          JOIN users u ON u.id = r.user_id
	          WHERE 1=1`
	args := make([]interface{}, 0, 3)
	if f.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, f.Status)
	}
	if f.From != "" {
		query += ` AND r.reservation_date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND r.reservation_date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY r.reservation_date DESC, r.time_slot DESC, r.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserExternalID, &d.Date, &d.TimeSlot,
			&d.MenuItemID, &d.ItemName, &d.UnitPrice, &d.Quantity, &d.Status,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.TotalPrice = d.UnitPrice * d.Quantity
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDetail returns the admin view of a single reservation.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (ReservationDetail, error) {
	var d ReservationDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, u.external_id, r.reservation_date, r.time_slot,
		 r.menu_item_id, r.item_name, r.unit_price, r.quantity, r.status,
		 r.created_at, r.updated_at
		 FROM reservations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.id = ?`, id).Scan(
		&d.ID, &d.UserID, &d.UserExternalID, &d.Date, &d.TimeSlot,
		&d.MenuItemID, &d.ItemName, &d.UnitPrice, &d.Quantity, &d.Status,
		&d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return ReservationDetail{}, ErrNotFound
	}
	if err != nil {
		return ReservationDetail{}, err
	}
	d.TotalPrice = d.UnitPrice * d.Quantity
	return d, nil
}

// UpdateParams is a full rewrite of a reservation's mutable fields,
// used by the admin PUT endpoint. The handler resolves the menu item
// and keeps the ledger in step before calling Update.
type UpdateParams struct {
	Date       string
	TimeSlot   string
	MenuItemID uint64
	ItemName   string
	UnitPrice  uint32
	Quantity   uint32
	Status     string
}

// Update rewrites the reservation row. ErrNotFound when no row exists.
func (r *ReservationRepo) Update(ctx context.Context, id uint64, p UpdateParams) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations
		 SET reservation_date = ?, time_slot = ?, menu_item_id = ?, item_name = ?,
		     unit_price = ?, quantity = ?, status = ?
		 WHERE id = ?`,
		p.Date, p.TimeSlot, p.MenuItemID, p.ItemName, p.UnitPrice, p.Quantity, p.Status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, found, err := r.Get(ctx, id); err != nil {
			return err
		} else if !found {
			return ErrNotFound
		}
	}
	return nil
}

// Delete hard-removes a reservation row. Admin-only escape hatch: it
// bypasses the ledger release on purpose, so staff must reconcile the
// slot's capacity separately when deleting an active row.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
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
