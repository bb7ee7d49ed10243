package model

import "time"

// CapacityRecord is one row of the slot capacity ledger. ReservedCount
// only moves through the ledger's atomic reserve/release operations and
// never exceeds TotalCapacity.
type CapacityRecord struct {
	ID            uint64    // capacity.id
	Key           SlotKey   // capacity.reservation_date + capacity.time_slot
	TotalCapacity uint32    // capacity.total_capacity
	ReservedCount uint32    // capacity.reserved_count
	CreatedAt     time.Time // capacity.created_at
	UpdatedAt     time.Time // capacity.updated_at
}

// Available returns the portions still bookable in this slot, clamped
// at zero in case a manual capacity edit undercuts the reserved count.
func (c CapacityRecord) Available() uint32 {
	if c.ReservedCount >= c.TotalCapacity {
		return 0
	}
	return c.TotalCapacity - c.ReservedCount
}
