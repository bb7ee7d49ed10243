package model

import "time"

// MenuItem mirrors the `menu_items` table. Items are never hard-deleted
// while reservations reference them; taking one off the menu flips
// IsAvailable instead.
type MenuItem struct {
	ID          uint64    // menu_items.id
	Name        string    // menu_items.name (unique, human key)
	Description string    // menu_items.description
	Price       uint32    // menu_items.price, yen
	IsAvailable bool      // menu_items.is_available
	CreatedAt   time.Time // menu_items.created_at
	UpdatedAt   time.Time // menu_items.updated_at
}
