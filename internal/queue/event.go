// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when an order is successfully
// confirmed. It carries enough for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	Date          string `json:"reservation_date"`
	TimeSlot      string `json:"time_slot"`
	ItemName      string `json:"item_name"`
	Quantity      uint32 `json:"quantity"`
	TotalPrice    uint32 `json:"total_price"`
	ConfirmedAt   string `json:"confirmed_at"`
}
