package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/booking/bookingtest"
	"github.com/magokoro/onigiri-reservation/internal/model"
)

var machineNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) // Monday

func newTestMachine(t *testing.T) (*Machine, *bookingtest.MemLedger) {
	t.Helper()
	ledger := bookingtest.NewMemLedger(10)
	menu := bookingtest.NewMemMenu(
		model.MenuItem{ID: 1, Name: "Salt", Description: "Plain salted rice ball", Price: 120, IsAvailable: true},
		model.MenuItem{ID: 2, Name: "Tuna Mayo", Description: "Tuna and mayonnaise filling", Price: 150, IsAvailable: true},
	)
	engine := booking.NewEngine(ledger, menu, bookingtest.NewMemUsers(), bookingtest.NewMemReservations(), bookingtest.NewMemCalendar(), booking.Policy{
		SlotCapacity:     10,
		MaxQuantity:      5,
		MaxActivePerUser: 3,
		LeadTime:         24 * time.Hour,
		DaysAhead:        3,
	})
	engine.Now = func() time.Time { return machineNow }
	return NewMachine(engine, StoreInfo{
		Name:    "Magokoro Onigiri",
		Address: "1-1-15 Kuge, Kazo, Saitama",
		Phone:   "0480-00-0000",
	}), ledger
}

func message(user, text string) Event {
	return Event{Type: EventMessage, SourceID: user, Text: text}
}

func postback(user, data string) Event {
	return Event{Type: EventPostback, SourceID: user, PostbackData: data}
}

func TestHandleTextCommands(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)

	t.Run("unknown text yields help", func(t *testing.T) {
		replies, err := m.Handle(ctx, message("u1", "good morning"))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "reserve")
	})

	t.Run("menu", func(t *testing.T) {
		replies, err := m.Handle(ctx, message("u1", "menu"))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "Salt")
		assert.Contains(t, replies[0].Text, "¥150")
	})

	t.Run("hours", func(t *testing.T) {
		replies, err := m.Handle(ctx, message("u1", "hours"))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "Magokoro Onigiri")
		assert.Contains(t, replies[0].Text, "11:00-14:30")
	})

	t.Run("follow", func(t *testing.T) {
		replies, err := m.Handle(ctx, Event{Type: EventFollow, SourceID: "newcomer"})
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Contains(t, replies[0].Text, "Welcome")
	})

	t.Run("check with no orders", func(t *testing.T) {
		replies, err := m.Handle(ctx, message("u1", "check"))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "no upcoming orders")
	})
}

func TestReserveFlow(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)
	const user = "flow-user"

	// Step 1: date picker offers the next three business days.
	replies, err := m.Handle(ctx, message(user, "reserve"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 3)
	dateTok, err := ParseToken(replies[0].Choices[0].Data)
	require.NoError(t, err)
	assert.Equal(t, StepDate, dateTok.Step)
	assert.Equal(t, "2024-06-11", dateTok.Date)

	// Step 2: time picker shows live availability.
	replies, err = m.Handle(ctx, postback(user, replies[0].Choices[0].Data))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 8)
	assert.Contains(t, replies[0].Choices[0].Label, "(10 left)")
	var timeData string
	for _, ch := range replies[0].Choices {
		tok, err := ParseToken(ch.Data)
		require.NoError(t, err)
		if tok.Time == "11:30" {
			timeData = ch.Data
		}
	}
	require.NotEmpty(t, timeData)

	// Step 3: menu cards carry the slot forward.
	replies, err = m.Handle(ctx, postback(user, timeData))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Cards, 2)
	itemCard := replies[0].Cards[1]
	assert.Contains(t, itemCard.Title, "Tuna Mayo")

	// Step 4: quantity choices go up to the per-booking cap.
	replies, err = m.Handle(ctx, postback(user, itemCard.Data))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 5)
	qtyData := replies[0].Choices[2].Data // quantity 3

	// Step 5: summary shows the total before committing.
	replies, err = m.Handle(ctx, postback(user, qtyData))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Tuna Mayo x3")
	assert.Contains(t, replies[0].Text, "¥450")
	require.Len(t, replies[0].Choices, 2)
	confirmData := replies[0].Choices[0].Data
	assert.Zero(t, ledger.Reserved(model.SlotKey{Date: "2024-06-11", Time: "11:30"}),
		"nothing reserved before confirmation")

	// Step 6: confirmation books and charges the ledger.
	replies, err = m.Handle(ctx, postback(user, confirmData))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "confirmed")
	assert.Equal(t, uint32(3), ledger.Reserved(model.SlotKey{Date: "2024-06-11", Time: "11:30"}))

	// The order now shows up in check.
	replies, err = m.Handle(ctx, message(user, "check"))
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "Tuna Mayo x3")
}

func TestQuantityCappedByAvailability(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)
	key := model.SlotKey{Date: "2024-06-11", Time: "11:30"}

	// Eight portions already taken: only two may be offered.
	_, ok, err := ledger.Reserve(ctx, key, 8)
	require.NoError(t, err)
	require.True(t, ok)

	tok := Token{Step: StepItem, Date: key.Date, Time: key.Time, ItemID: 1}
	replies, err := m.Handle(ctx, postback("u1", tok.Encode()))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].Choices, 2)
}

func TestFullSlotOmittedFromTimePicker(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)
	key := model.SlotKey{Date: "2024-06-11", Time: "11:00"}

	_, ok, err := ledger.Reserve(ctx, key, 10)
	require.NoError(t, err)
	require.True(t, ok)

	tok := Token{Step: StepDate, Date: key.Date}
	replies, err := m.Handle(ctx, postback("u1", tok.Encode()))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].Choices, 7)
	for _, ch := range replies[0].Choices {
		assert.NotContains(t, ch.Label, "11:00 ")
	}
}

func TestConfirmAgainstStaleToken(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	t.Run("slot filled between summary and confirm", func(t *testing.T) {
		key := model.SlotKey{Date: "2024-06-11", Time: "12:00"}
		_, ok, err := ledger.Reserve(ctx, key, 8)
		require.NoError(t, err)
		require.True(t, ok)

		tok := Token{Step: StepConfirm, Date: key.Date, Time: key.Time, ItemID: 1, Quantity: 3}
		replies, err := m.Handle(ctx, postback("u1", tok.Encode()))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "only 2 left")
		assert.Equal(t, uint32(8), ledger.Reserved(key))
	})

	t.Run("date slipped past the deadline", func(t *testing.T) {
		tok := Token{Step: StepConfirm, Date: "2024-06-10", Time: "14:30", ItemID: 1, Quantity: 1}
		replies, err := m.Handle(ctx, postback("u1", tok.Encode()))
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "no longer available")
	})

	t.Run("garbage postback restarts", func(t *testing.T) {
		replies, err := m.Handle(ctx, postback("u1", "step=warp&x=1"))
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Contains(t, replies[0].Text, "expired")
	})
}

func TestCancelFlow(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)
	const user = "cancel-user"
	key := model.SlotKey{Date: "2024-06-12", Time: "13:00"}

	res, err := m.Engine.Book(ctx, user, key, 1, 2)
	require.NoError(t, err)

	replies, err := m.Handle(ctx, message(user, "cancel"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 1)
	assert.Contains(t, replies[0].Choices[0].Label, fmt.Sprintf("#%d", res.ID))

	replies, err = m.Handle(ctx, postback(user, replies[0].Choices[0].Data))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "cancelled")
	assert.Zero(t, ledger.Reserved(key))

	// Cancelling again through a stale button is harmless.
	tok := Token{Step: StepCancel, ReservationID: res.ID}
	replies, err = m.Handle(ctx, postback(user, tok.Encode()))
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "already been cancelled")
}
