package booking

import (
	"fmt"
	"time"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// TimeSlots is the fixed ordered set of half-hour pickup windows within
// business hours (11:00-14:30 on weekdays).
var TimeSlots = []string{
	"11:00", "11:30", "12:00", "12:30",
	"13:00", "13:30", "14:00", "14:30",
}

// ValidTimeSlot reports whether s is one of the fixed slot labels.
func ValidTimeSlot(s string) bool {
	for _, t := range TimeSlots {
		if t == s {
			return true
		}
	}
	return false
}

// Policy carries the booking business rules. All slot arithmetic is
// done in UTC, matching the storage layer.
type Policy struct {
	SlotCapacity     uint32        // portions bookable per slot
	MaxQuantity      uint32        // per-booking quantity cap
	MaxActivePerUser int           // active reservations per user, 0 disables
	LeadTime         time.Duration // minimum notice before a slot starts
	DaysAhead        int           // business days offered in the date picker
}

// ValidateSlot checks a slot key against the business rules: the date
// must parse, the time label must be one of the fixed set, the date
// must be a business day (weekday, unless a calendar override says
// otherwise), and the slot must start at least LeadTime from now.
// openOverride is the business-calendar entry for the date, or nil when
// none exists. All failures wrap ErrInvalidSlot.
func (p Policy) ValidateSlot(key model.SlotKey, now time.Time, openOverride *bool) error {
	if !ValidTimeSlot(key.Time) {
		return fmt.Errorf("%w: unknown time slot %q", ErrInvalidSlot, key.Time)
	}
	start, err := key.Start()
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidSlot, key.Date)
	}
	open := isWeekday(start)
	if openOverride != nil {
		open = *openOverride
	}
	if !open {
		return fmt.Errorf("%w: %s is not a business day", ErrInvalidSlot, key.Date)
	}
	if start.Sub(now) < p.LeadTime {
		return fmt.Errorf("%w: %s is past the booking deadline", ErrInvalidSlot, key.String())
	}
	return nil
}

// UpcomingDates returns up to DaysAhead business dates that still have
// at least one slot within the lead-time window, starting from today.
// isOpen resolves the business calendar for a date; pass nil to use the
// weekday rule alone. The scan is bounded so a long closure (or a
// miconfigured calendar) cannot loop forever.
func (p Policy) UpcomingDates(now time.Time, isOpen func(date string) *bool) []string {
	last := TimeSlots[len(TimeSlots)-1]
	dates := make([]string, 0, p.DaysAhead)
	day := now.UTC().Truncate(24 * time.Hour)
	for i := 0; i < 60 && len(dates) < p.DaysAhead; i++ {
		d := day.AddDate(0, 0, i)
		date := d.Format(model.DateLayout)
		open := isWeekday(d)
		if isOpen != nil {
			if ov := isOpen(date); ov != nil {
				open = *ov
			}
		}
		if !open {
			continue
		}
		// The date is offerable while its latest slot is still bookable.
		if err := p.ValidateSlot(model.SlotKey{Date: date, Time: last}, now, boolPtr(open)); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	return dates
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func boolPtr(b bool) *bool { return &b }
