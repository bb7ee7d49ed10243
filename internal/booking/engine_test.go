package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/booking/bookingtest"
	"github.com/magokoro/onigiri-reservation/internal/model"
)

var (
	engineNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) // Monday
	slot      = model.SlotKey{Date: "2024-06-11", Time: "11:30"}
)

type fixture struct {
	engine       *booking.Engine
	ledger       *bookingtest.MemLedger
	reservations *bookingtest.MemReservations
	calendar     *bookingtest.MemCalendar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := bookingtest.NewMemLedger(10)
	menu := bookingtest.NewMemMenu(
		model.MenuItem{ID: 1, Name: "Salt", Price: 120, IsAvailable: true},
		model.MenuItem{ID: 2, Name: "Tuna Mayo", Price: 150, IsAvailable: true},
		model.MenuItem{ID: 3, Name: "Retired Special", Price: 200, IsAvailable: false},
	)
	reservations := bookingtest.NewMemReservations()
	calendar := bookingtest.NewMemCalendar()
	engine := booking.NewEngine(ledger, menu, bookingtest.NewMemUsers(), reservations, calendar, booking.Policy{
		SlotCapacity:     10,
		MaxQuantity:      5,
		MaxActivePerUser: 3,
		LeadTime:         24 * time.Hour,
		DaysAhead:        3,
	})
	engine.Now = func() time.Time { return engineNow }
	return &fixture{engine: engine, ledger: ledger, reservations: reservations, calendar: calendar}
}

func TestBook(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		var confirmed []model.Reservation
		f.engine.OnConfirmed = func(_ context.Context, r model.Reservation) {
			confirmed = append(confirmed, r)
		}

		res, err := f.engine.Book(ctx, "user-a", slot, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, res.Status)
		assert.Equal(t, "Tuna Mayo", res.ItemName)
		assert.Equal(t, uint32(150), res.UnitPrice)
		assert.Equal(t, uint32(450), res.TotalPrice())
		assert.NotZero(t, res.ID)
		assert.Equal(t, uint32(3), f.ledger.Reserved(slot))
		require.Len(t, confirmed, 1)
		assert.Equal(t, res.ID, confirmed[0].ID)
	})

	t.Run("unknown menu item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", slot, 99, 1)
		assert.ErrorIs(t, err, booking.ErrUnknownMenuItem)
		assert.Zero(t, f.ledger.Reserved(slot))
	})

	t.Run("disabled menu item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", slot, 3, 1)
		assert.ErrorIs(t, err, booking.ErrUnknownMenuItem)
	})

	t.Run("quantity out of range", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", slot, 1, 0)
		assert.ErrorIs(t, err, booking.ErrInvalidQuantity)
		_, err = f.engine.Book(ctx, "user-a", slot, 1, 6)
		assert.ErrorIs(t, err, booking.ErrInvalidQuantity)
		assert.Zero(t, f.ledger.Reserved(slot))
	})

	t.Run("weekend slot", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", model.SlotKey{Date: "2024-06-15", Time: "11:30"}, 1, 1)
		assert.ErrorIs(t, err, booking.ErrInvalidSlot)
	})

	t.Run("calendar override opens weekend", func(t *testing.T) {
		f := newFixture(t)
		f.calendar.Set("2024-06-15", true)
		_, err := f.engine.Book(ctx, "user-a", model.SlotKey{Date: "2024-06-15", Time: "11:30"}, 1, 1)
		assert.NoError(t, err)
	})

	t.Run("lead time", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", model.SlotKey{Date: "2024-06-10", Time: "14:30"}, 1, 1)
		assert.ErrorIs(t, err, booking.ErrInvalidSlot)
	})

	t.Run("per-user limit", func(t *testing.T) {
		f := newFixture(t)
		for _, s := range []model.SlotKey{
			{Date: "2024-06-11", Time: "11:00"},
			{Date: "2024-06-11", Time: "12:00"},
			{Date: "2024-06-12", Time: "11:00"},
		} {
			_, err := f.engine.Book(ctx, "regular", s, 1, 1)
			require.NoError(t, err)
		}
		_, err := f.engine.Book(ctx, "regular", model.SlotKey{Date: "2024-06-12", Time: "12:00"}, 1, 1)
		assert.ErrorIs(t, err, booking.ErrUserLimitExceeded)

		// Other users are unaffected.
		_, err = f.engine.Book(ctx, "someone-else", model.SlotKey{Date: "2024-06-12", Time: "12:00"}, 1, 1)
		assert.NoError(t, err)
	})

	t.Run("capacity exhausted reports remaining", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Book(ctx, "user-a", slot, 1, 5)
		require.NoError(t, err)
		_, err = f.engine.Book(ctx, "user-b", slot, 1, 3)
		require.NoError(t, err)

		_, err = f.engine.Book(ctx, "user-c", slot, 1, 4)
		var capErr *booking.CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, uint32(2), capErr.Remaining)
		assert.Equal(t, slot.String(), capErr.Slot)

		// The failed attempt must not leak into the ledger.
		assert.Equal(t, uint32(8), f.ledger.Reserved(slot))
	})

	t.Run("persist failure releases capacity", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.CreateErr = errors.New("disk on fire")
		_, err := f.engine.Book(ctx, "user-a", slot, 1, 4)
		require.Error(t, err)
		assert.Zero(t, f.ledger.Reserved(slot))
	})
}

// Two overlapping bookings of 6 against a capacity of 10: exactly one
// may win, and the ledger must agree with the surviving rows.
func TestBookConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := []string{"first", "second"}[i]
			_, errs[i] = f.engine.Book(ctx, user, slot, 1, 6)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			var capErr *booking.CapacityError
			require.ErrorAs(t, err, &capErr)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, uint32(6), f.ledger.Reserved(slot))
	assert.Equal(t, f.reservations.ActiveQuantity(slot), f.ledger.Reserved(slot))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("releases capacity", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.engine.Book(ctx, "user-a", slot, 1, 4)
		require.NoError(t, err)
		require.Equal(t, uint32(4), f.ledger.Reserved(slot))

		cancelled, err := f.engine.Cancel(ctx, "user-a", res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)
		assert.Zero(t, f.ledger.Reserved(slot))
	})

	t.Run("double cancel", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.engine.Book(ctx, "user-a", slot, 1, 2)
		require.NoError(t, err)
		_, err = f.engine.Cancel(ctx, "user-a", res.ID)
		require.NoError(t, err)

		_, err = f.engine.Cancel(ctx, "user-a", res.ID)
		assert.ErrorIs(t, err, booking.ErrNotCancellable)
		assert.Zero(t, f.ledger.Reserved(slot))
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Cancel(ctx, "user-a", 12345)
		assert.ErrorIs(t, err, booking.ErrReservationNotFound)
	})

	t.Run("someone else's reservation looks missing", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.engine.Book(ctx, "owner", slot, 1, 2)
		require.NoError(t, err)

		_, err = f.engine.Cancel(ctx, "intruder", res.ID)
		assert.ErrorIs(t, err, booking.ErrReservationNotFound)
		assert.Equal(t, uint32(2), f.ledger.Reserved(slot))
	})
}
