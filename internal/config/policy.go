package config

import "time"

// PolicyConfig carries the booking business rules. The historical
// deployment flip-flopped on several of these (3 vs 5 per booking,
// per-slot vs per-day capacity), so every knob is environment-driven
// with one consistent default set.
type PolicyConfig struct {
	SlotCapacity     int           // portions bookable per half-hour slot
	MaxQuantity      int           // per-booking quantity cap
	MaxActivePerUser int           // active reservations per user; 0 disables the check
	LeadTime         time.Duration // minimum notice before a slot starts
	DaysAhead        int           // business days offered in the date picker
}

// LoadPolicyConfig reads the booking policy from environment variables,
// falling back to the defaults above when unset.
func LoadPolicyConfig() PolicyConfig {
	p := PolicyConfig{
		SlotCapacity:     envInt("SLOT_CAPACITY", 10),
		MaxQuantity:      envInt("MAX_QTY_PER_BOOKING", 5),
		MaxActivePerUser: envInt("MAX_ACTIVE_PER_USER", 3),
		LeadTime:         envDur("LEAD_TIME", 24*time.Hour),
		DaysAhead:        envInt("BOOKING_DAYS_AHEAD", 3),
	}
	if p.SlotCapacity < 1 {
		p.SlotCapacity = 1
	}
	if p.MaxQuantity < 1 {
		p.MaxQuantity = 1
	}
	if p.DaysAhead < 1 {
		p.DaysAhead = 1
	}
	if p.LeadTime < 0 {
		p.LeadTime = 0
	}
	return p
}
