// Package model defines the persistent data structures shared by the
// repositories, the booking engine and the HTTP layer.
package model

import "time"

// DateLayout is the YYYY-MM-DD form all reservation dates use. Dates
// are stored as strings in this layout so lexical ordering matches
// chronological ordering.
const DateLayout = "2006-01-02"

// slotLayout parses a date plus a time-slot label into an instant.
const slotLayout = "2006-01-02 15:04"

// SlotKey identifies one bookable pickup window: a date and a half-hour
// slot label such as "11:30". It is the key of the capacity ledger.
type SlotKey struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM, one of the fixed slot labels
}

// Start returns the UTC instant at which the slot begins.
func (k SlotKey) Start() (time.Time, error) {
	return time.Parse(slotLayout, k.Date+" "+k.Time)
}

func (k SlotKey) String() string { return k.Date + " " + k.Time }
