package model

import "time"

// Reservation statuses. A reservation starts out confirmed (the ledger
// has already been charged when the row is written) and only ever moves
// forward: confirmed -> cancelled or confirmed -> completed. Terminal
// statuses never regress.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Reservation records one confirmed pickup order. The menu item's name
// and price are denormalized at booking time so that later menu edits
// or soft-disables do not rewrite history.
type Reservation struct {
	ID         uint64    // reservations.id
	UserID     uint64    // reservations.user_id
	Slot       SlotKey   // reservations.reservation_date + reservations.time_slot
	MenuItemID uint64    // reservations.menu_item_id
	ItemName   string    // reservations.item_name (copied from menu_items at booking)
	UnitPrice  uint32    // reservations.unit_price, yen
	Quantity   uint32    // reservations.quantity
	Status     string    // reservations.status
	CreatedAt  time.Time // reservations.created_at
	UpdatedAt  time.Time // reservations.updated_at
}

// Active reports whether the reservation still holds capacity in the
// slot ledger.
func (r Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// TotalPrice returns quantity times unit price in yen.
func (r Reservation) TotalPrice() uint32 { return r.UnitPrice * r.Quantity }

// ValidStatus reports whether s is one of the known reservation states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
