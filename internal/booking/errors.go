// Package booking implements the capacity-bounded booking engine: slot
// validation, the atomic reserve/persist/compensate sequence, and
// cancellation with capacity release. The error values here form the
// complete outcome taxonomy for a booking attempt; every call resolves
// to exactly one of them or to a successful reservation.
package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSlot covers every slot rejection: unknown time label,
	// malformed or non-business date, and lead-time violations.
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrUnknownMenuItem is returned when the referenced menu item does
	// not exist or has been taken off the menu.
	ErrUnknownMenuItem = errors.New("unknown menu item")

	// ErrInvalidQuantity is returned when the quantity is outside
	// 1..Policy.MaxQuantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrUserLimitExceeded is returned when the user already holds the
	// configured number of active reservations.
	ErrUserLimitExceeded = errors.New("active reservation limit reached")

	// ErrReservationNotFound is returned by Cancel when the reservation
	// does not exist or belongs to a different user.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNotCancellable is returned by Cancel when the reservation is
	// already in a terminal state.
	ErrNotCancellable = errors.New("reservation cannot be cancelled")
)

// CapacityError reports a failed reserve on a full (or too-full) slot.
// Remaining carries the slot's available count at the time of the
// attempt so callers can show it to the user.
type CapacityError struct {
	Slot      string
	Remaining uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("slot %s over capacity: %d remaining", e.Slot, e.Remaining)
}
