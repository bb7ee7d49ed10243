package model

import "time"

// CalendarDay mirrors the `business_calendar` table. A row overrides
// the default weekday rule for one date: holidays close a weekday,
// special openings open a weekend. Dates without a row fall back to
// the rule.
type CalendarDay struct {
	ID        uint64    // business_calendar.id
	Date      string    // business_calendar.calendar_date, YYYY-MM-DD
	IsOpen    bool      // business_calendar.is_open
	Note      string    // business_calendar.note
	CreatedAt time.Time // business_calendar.created_at
}
