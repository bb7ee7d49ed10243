package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

func testPolicy() Policy {
	return Policy{
		SlotCapacity:     10,
		MaxQuantity:      5,
		MaxActivePerUser: 3,
		LeadTime:         24 * time.Hour,
		DaysAhead:        3,
	}
}

// Monday morning anchor; the shop is open Tue-Thu within the window.
var testNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func TestValidTimeSlot(t *testing.T) {
	assert.True(t, ValidTimeSlot("11:00"))
	assert.True(t, ValidTimeSlot("14:30"))
	assert.False(t, ValidTimeSlot("15:00"))
	assert.False(t, ValidTimeSlot("11:15"))
	assert.False(t, ValidTimeSlot(""))
}

func TestValidateSlot(t *testing.T) {
	p := testPolicy()

	t.Run("ok next day", func(t *testing.T) {
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-11", Time: "11:00"}, testNow, nil)
		assert.NoError(t, err)
	})

	t.Run("unknown label", func(t *testing.T) {
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-11", Time: "10:00"}, testNow, nil)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("bad date", func(t *testing.T) {
		err := p.ValidateSlot(model.SlotKey{Date: "June 11", Time: "11:00"}, testNow, nil)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("weekend rejected", func(t *testing.T) {
		// 2024-06-15 is a Saturday.
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-15", Time: "11:00"}, testNow, nil)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("weekend opened by override", func(t *testing.T) {
		open := true
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-15", Time: "11:00"}, testNow, &open)
		assert.NoError(t, err)
	})

	t.Run("weekday closed by override", func(t *testing.T) {
		closed := false
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-11", Time: "11:00"}, testNow, &closed)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("lead time violated", func(t *testing.T) {
		// Same-day slot starts only a couple of hours from now.
		err := p.ValidateSlot(model.SlotKey{Date: "2024-06-10", Time: "14:30"}, testNow, nil)
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("zero lead time allows near slots", func(t *testing.T) {
		relaxed := p
		relaxed.LeadTime = 0
		err := relaxed.ValidateSlot(model.SlotKey{Date: "2024-06-10", Time: "14:30"}, testNow, nil)
		assert.NoError(t, err)
	})
}

func TestUpcomingDates(t *testing.T) {
	p := testPolicy()

	t.Run("weekday run", func(t *testing.T) {
		dates := p.UpcomingDates(testNow, nil)
		require.Equal(t, []string{"2024-06-11", "2024-06-12", "2024-06-13"}, dates)
	})

	t.Run("skips weekend", func(t *testing.T) {
		// Friday anchor: Saturday and Sunday are passed over.
		friday := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
		dates := p.UpcomingDates(friday, nil)
		require.Equal(t, []string{"2024-06-17", "2024-06-18", "2024-06-19"}, dates)
	})

	t.Run("calendar closes a weekday", func(t *testing.T) {
		overrides := map[string]bool{"2024-06-12": false}
		dates := p.UpcomingDates(testNow, func(date string) *bool {
			if v, ok := overrides[date]; ok {
				return &v
			}
			return nil
		})
		require.Equal(t, []string{"2024-06-11", "2024-06-13", "2024-06-14"}, dates)
	})

	t.Run("calendar opens a weekend", func(t *testing.T) {
		friday := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
		overrides := map[string]bool{"2024-06-15": true}
		dates := p.UpcomingDates(friday, func(date string) *bool {
			if v, ok := overrides[date]; ok {
				return &v
			}
			return nil
		})
		require.Equal(t, []string{"2024-06-15", "2024-06-17", "2024-06-18"}, dates)
	})

	t.Run("bounded scan with everything closed", func(t *testing.T) {
		closed := false
		dates := p.UpcomingDates(testNow, func(string) *bool { return &closed })
		assert.Empty(t, dates)
	})
}
