package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/model"
)

// StoreInfo is the shop identity shown in the hours/info reply.
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
}

// Machine turns inbound events into replies. It is stateless: every
// step's context travels in the postback token, and every token is
// re-validated when it comes back, so stale buttons from old messages
// degrade into a polite restart instead of a corrupt order.
type Machine struct {
	Engine *booking.Engine
	Store  StoreInfo
}

// NewMachine wires the conversation flow around a booking engine.
func NewMachine(engine *booking.Engine, store StoreInfo) *Machine {
	if engine == nil {
		panic("nil engine passed to NewMachine")
	}
	return &Machine{Engine: engine, Store: store}
}

// Handle processes one inbound event and returns the replies to send.
// Storage failures are logged and mapped to a generic retry message;
// the error return is reserved for programming mistakes, so the webhook
// loop keeps processing the rest of the batch.
func (m *Machine) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	switch ev.Type {
	case EventFollow:
		return []Reply{
			TextReply("Welcome to %s! Tap Reserve or say \"reserve\" to order onigiri for pickup.", m.Store.Name),
			m.helpReply(),
		}, nil
	case EventMessage:
		return m.handleText(ctx, ev)
	case EventPostback:
		return m.handlePostback(ctx, ev)
	default:
		// Unsupported event kinds (stickers, media) are ignored.
		return nil, nil
	}
}

func (m *Machine) handleText(ctx context.Context, ev Event) ([]Reply, error) {
	switch normalize(ev.Text) {
	case "reserve", "book", "order":
		return m.datePrompt(ctx)
	case "check", "reservations", "my reservations":
		return m.listReservations(ctx, ev.SourceID)
	case "cancel":
		return m.cancelPrompt(ctx, ev.SourceID)
	case "menu":
		return m.menuReply(ctx)
	case "hours", "info", "about":
		return []Reply{m.hoursReply()}, nil
	default:
		return []Reply{m.helpReply()}, nil
	}
}

func (m *Machine) handlePostback(ctx context.Context, ev Event) ([]Reply, error) {
	tok, err := ParseToken(ev.PostbackData)
	if err != nil {
		log.Printf("conversation: dropping postback from %s: %v", ev.SourceID, err)
		return []Reply{TextReply("That button has expired. Let's start over."), m.helpReply()}, nil
	}
	switch tok.Step {
	case StepRestart:
		return m.datePrompt(ctx)
	case StepDate:
		return m.timePrompt(ctx, tok)
	case StepTime:
		return m.itemPrompt(ctx, tok)
	case StepItem:
		return m.qtyPrompt(ctx, tok)
	case StepQty:
		return m.confirmPrompt(ctx, tok)
	case StepConfirm:
		return m.book(ctx, ev.SourceID, tok)
	case StepCancel:
		return m.cancel(ctx, ev.SourceID, tok.ReservationID)
	}
	return []Reply{m.helpReply()}, nil
}

// datePrompt opens the flow with the bookable dates.
func (m *Machine) datePrompt(ctx context.Context) ([]Reply, error) {
	dates := m.Engine.Policy.UpcomingDates(m.now(), m.openLookup(ctx))
	if len(dates) == 0 {
		return []Reply{TextReply("Sorry, no pickup dates are open for booking right now. Please check back later.")}, nil
	}
	choices := make([]Choice, 0, len(dates))
	for _, d := range dates {
		choices = append(choices, Choice{
			Label: dateLabel(d),
			Data:  Token{Step: StepDate, Date: d}.Encode(),
		})
	}
	return []Reply{{Text: "Which day would you like to pick up?", Choices: choices}}, nil
}

// timePrompt lists the day's slots with live availability. A date token
// that no longer validates (lead time passed, shop closed since) falls
// back to the date picker.
func (m *Machine) timePrompt(ctx context.Context, tok Token) ([]Reply, error) {
	now := m.now()
	override, err := m.openOverride(ctx, tok.Date)
	if err != nil {
		return m.storageFailure("calendar lookup", err)
	}
	choices := make([]Choice, 0, len(booking.TimeSlots))
	for _, slot := range booking.TimeSlots {
		key := model.SlotKey{Date: tok.Date, Time: slot}
		if err := m.Engine.Policy.ValidateSlot(key, now, override); err != nil {
			continue
		}
		rec, err := m.Engine.Ledger.Availability(ctx, key)
		if err != nil {
			return m.storageFailure("availability lookup", err)
		}
		avail := rec.Available()
		if avail == 0 {
			continue
		}
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s (%d left)", slot, avail),
			Data:  Token{Step: StepTime, Date: tok.Date, Time: slot}.Encode(),
		})
	}
	if len(choices) == 0 {
		replies, err := m.datePrompt(ctx)
		if err != nil {
			return replies, err
		}
		return append([]Reply{TextReply("%s is fully booked or no longer available.", dateLabel(tok.Date))}, replies...), nil
	}
	return []Reply{{
		Text:    fmt.Sprintf("Pickup times for %s:", dateLabel(tok.Date)),
		Choices: choices,
	}}, nil
}

// itemPrompt shows the menu as cards carrying the slot context forward.
func (m *Machine) itemPrompt(ctx context.Context, tok Token) ([]Reply, error) {
	items, err := m.Engine.Menu.ListAvailable(ctx)
	if err != nil {
		return m.storageFailure("menu list", err)
	}
	if len(items) == 0 {
		return []Reply{TextReply("The menu is empty right now. Please check back later.")}, nil
	}
	cards := make([]Card, 0, len(items))
	for _, it := range items {
		cards = append(cards, Card{
			Title: fmt.Sprintf("%s — ¥%d", it.Name, it.Price),
			Text:  it.Description,
			Data:  Token{Step: StepItem, Date: tok.Date, Time: tok.Time, ItemID: it.ID}.Encode(),
		})
	}
	return []Reply{{
		Text:  fmt.Sprintf("What would you like for %s at %s?", dateLabel(tok.Date), tok.Time),
		Cards: cards,
	}}, nil
}

// qtyPrompt offers 1..min(available, per-booking cap) as quantities.
func (m *Machine) qtyPrompt(ctx context.Context, tok Token) ([]Reply, error) {
	item, found, err := m.Engine.Menu.Get(ctx, tok.ItemID)
	if err != nil {
		return m.storageFailure("menu lookup", err)
	}
	if !found || !item.IsAvailable {
		return []Reply{TextReply("That item is no longer on the menu. Let's start over."), m.helpReply()}, nil
	}
	rec, err := m.Engine.Ledger.Availability(ctx, model.SlotKey{Date: tok.Date, Time: tok.Time})
	if err != nil {
		return m.storageFailure("availability lookup", err)
	}
	max := rec.Available()
	if max > m.Engine.Policy.MaxQuantity {
		max = m.Engine.Policy.MaxQuantity
	}
	if max == 0 {
		replies, err := m.timePrompt(ctx, Token{Step: StepDate, Date: tok.Date})
		if err != nil {
			return replies, err
		}
		return append([]Reply{TextReply("Sorry, %s at %s just filled up.", dateLabel(tok.Date), tok.Time)}, replies...), nil
	}
	choices := make([]Choice, 0, max)
	for q := uint32(1); q <= max; q++ {
		choices = append(choices, Choice{
			Label: strconv.FormatUint(uint64(q), 10),
			Data:  Token{Step: StepQty, Date: tok.Date, Time: tok.Time, ItemID: tok.ItemID, Quantity: q}.Encode(),
		})
	}
	return []Reply{{
		Text:    fmt.Sprintf("How many %s? (up to %d)", item.Name, max),
		Choices: choices,
	}}, nil
}

// confirmPrompt shows the full order summary before committing.
func (m *Machine) confirmPrompt(ctx context.Context, tok Token) ([]Reply, error) {
	item, found, err := m.Engine.Menu.Get(ctx, tok.ItemID)
	if err != nil {
		return m.storageFailure("menu lookup", err)
	}
	if !found || !item.IsAvailable {
		return []Reply{TextReply("That item is no longer on the menu. Let's start over."), m.helpReply()}, nil
	}
	total := item.Price * tok.Quantity
	summary := fmt.Sprintf("Please confirm your order:\n%s x%d\nPickup: %s at %s\nTotal: ¥%d",
		item.Name, tok.Quantity, dateLabel(tok.Date), tok.Time, total)
	confirm := tok
	confirm.Step = StepConfirm
	return []Reply{{
		Text: summary,
		Choices: []Choice{
			{Label: "Confirm", Data: confirm.Encode()},
			{Label: "Start over", Data: Token{Step: StepRestart}.Encode()},
		},
	}}, nil
}

// book commits the order through the engine. Every taxonomy error maps
// to a user-facing message; the capacity case names the remaining count
// so the user can retry with fewer.
func (m *Machine) book(ctx context.Context, sourceID string, tok Token) ([]Reply, error) {
	key := model.SlotKey{Date: tok.Date, Time: tok.Time}
	res, err := m.Engine.Book(ctx, sourceID, key, tok.ItemID, tok.Quantity)
	if err == nil {
		return []Reply{TextReply(
			"Your order is confirmed!\n%s x%d\nPickup: %s at %s\nTotal: ¥%d\nReservation #%d — see you then!",
			res.ItemName, res.Quantity, dateLabel(res.Slot.Date), res.Slot.Time, res.TotalPrice(), res.ID)}, nil
	}

	var capErr *booking.CapacityError
	switch {
	case errors.As(err, &capErr):
		if capErr.Remaining == 0 {
			return []Reply{TextReply("Sorry, %s at %s is now fully booked. Say \"reserve\" to pick another time.", dateLabel(tok.Date), tok.Time)}, nil
		}
		return []Reply{TextReply("Sorry, only %d left for %s at %s. Say \"reserve\" to order a smaller amount.", capErr.Remaining, dateLabel(tok.Date), tok.Time)}, nil
	case errors.Is(err, booking.ErrInvalidSlot):
		return []Reply{TextReply("That pickup time is no longer available. Say \"reserve\" to start over.")}, nil
	case errors.Is(err, booking.ErrUnknownMenuItem):
		return []Reply{TextReply("That item is no longer on the menu. Say \"reserve\" to start over.")}, nil
	case errors.Is(err, booking.ErrInvalidQuantity):
		return []Reply{TextReply("That quantity isn't available. Say \"reserve\" to start over.")}, nil
	case errors.Is(err, booking.ErrUserLimitExceeded):
		return []Reply{TextReply("You already have the maximum number of upcoming orders. Cancel one first if you need to change it.")}, nil
	default:
		return m.storageFailure("book", err)
	}
}

// listReservations shows the user's upcoming orders.
func (m *Machine) listReservations(ctx context.Context, sourceID string) ([]Reply, error) {
	active, err := m.activeReservations(ctx, sourceID)
	if err != nil {
		return m.storageFailure("list reservations", err)
	}
	if len(active) == 0 {
		return []Reply{TextReply("You have no upcoming orders. Say \"reserve\" to place one.")}, nil
	}
	var b strings.Builder
	b.WriteString("Your upcoming orders:\n")
	for _, r := range active {
		fmt.Fprintf(&b, "#%d %s x%d — %s at %s (¥%d)\n",
			r.ID, r.ItemName, r.Quantity, dateLabel(r.Slot.Date), r.Slot.Time, r.TotalPrice())
	}
	b.WriteString("Say \"cancel\" to cancel one.")
	return []Reply{TextReply("%s", b.String())}, nil
}

// cancelPrompt lists the user's active orders as cancel buttons.
func (m *Machine) cancelPrompt(ctx context.Context, sourceID string) ([]Reply, error) {
	active, err := m.activeReservations(ctx, sourceID)
	if err != nil {
		return m.storageFailure("list reservations", err)
	}
	if len(active) == 0 {
		return []Reply{TextReply("You have no upcoming orders to cancel.")}, nil
	}
	choices := make([]Choice, 0, len(active))
	for _, r := range active {
		choices = append(choices, Choice{
			Label: fmt.Sprintf("#%d %s %s", r.ID, dateLabel(r.Slot.Date), r.Slot.Time),
			Data:  Token{Step: StepCancel, ReservationID: r.ID}.Encode(),
		})
	}
	return []Reply{{Text: "Which order would you like to cancel?", Choices: choices}}, nil
}

func (m *Machine) cancel(ctx context.Context, sourceID string, reservationID uint64) ([]Reply, error) {
	res, err := m.Engine.Cancel(ctx, sourceID, reservationID)
	switch {
	case err == nil:
		return []Reply{TextReply("Order #%d (%s x%d on %s at %s) has been cancelled.",
			res.ID, res.ItemName, res.Quantity, dateLabel(res.Slot.Date), res.Slot.Time)}, nil
	case errors.Is(err, booking.ErrReservationNotFound):
		return []Reply{TextReply("I couldn't find that order. Say \"check\" to see your current orders.")}, nil
	case errors.Is(err, booking.ErrNotCancellable):
		return []Reply{TextReply("That order has already been cancelled or completed.")}, nil
	default:
		return m.storageFailure("cancel", err)
	}
}

func (m *Machine) menuReply(ctx context.Context) ([]Reply, error) {
	items, err := m.Engine.Menu.ListAvailable(ctx)
	if err != nil {
		return m.storageFailure("menu list", err)
	}
	if len(items) == 0 {
		return []Reply{TextReply("The menu is empty right now. Please check back later.")}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s menu:\n", m.Store.Name)
	for _, it := range items {
		fmt.Fprintf(&b, "%s — ¥%d\n", it.Name, it.Price)
	}
	b.WriteString("Say \"reserve\" to place an order.")
	return []Reply{TextReply("%s", b.String())}, nil
}

func (m *Machine) hoursReply() Reply {
	first, last := booking.TimeSlots[0], booking.TimeSlots[len(booking.TimeSlots)-1]
	return TextReply("%s\n%s\nTel: %s\nPickup: weekdays, %s-%s (half-hour slots).\nOrders close %s before pickup.",
		m.Store.Name, m.Store.Address, m.Store.Phone, first, last, durationLabel(m.Engine.Policy.LeadTime))
}

func (m *Machine) helpReply() Reply {
	return Reply{
		Text: "Here's what I can do:\n\"reserve\" — order onigiri for pickup\n\"check\" — see your upcoming orders\n\"cancel\" — cancel an order\n\"menu\" — see the menu\n\"hours\" — shop info",
		Choices: []Choice{
			{Label: "Reserve", Data: Token{Step: StepRestart}.Encode()},
			{Label: "Menu", Text: "menu"},
			{Label: "Check", Text: "check"},
		},
	}
}

func (m *Machine) activeReservations(ctx context.Context, sourceID string) ([]model.Reservation, error) {
	user, err := m.Engine.Users.GetOrCreate(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return m.Engine.Reservations.ListActive(ctx, user.ID, m.now().Format(model.DateLayout))
}

// storageFailure logs the real error and degrades to a retry message so
// one backend hiccup never kills the webhook batch.
func (m *Machine) storageFailure(op string, err error) ([]Reply, error) {
	log.Printf("conversation: %s failed: %v", op, err)
	return []Reply{TextReply("Something went wrong on our side. Please try again in a moment.")}, nil
}

func (m *Machine) now() time.Time { return m.Engine.Now().UTC() }

func (m *Machine) openOverride(ctx context.Context, date string) (*bool, error) {
	if m.Engine.Calendar == nil {
		return nil, nil
	}
	open, found, err := m.Engine.Calendar.OpenOverride(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &open, nil
}

// openLookup adapts the calendar to the date-picker callback, treating
// lookup errors as "no override" so the picker stays usable when the
// calendar table is unreachable.
func (m *Machine) openLookup(ctx context.Context) func(date string) *bool {
	if m.Engine.Calendar == nil {
		return nil
	}
	return func(date string) *bool {
		open, found, err := m.Engine.Calendar.OpenOverride(ctx, date)
		if err != nil {
			log.Printf("conversation: calendar lookup for %s failed: %v", date, err)
			return nil
		}
		if !found {
			return nil
		}
		return &open
	}
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// dateLabel renders "2024-06-11" as "Tue, Jun 11" for prompts, falling
// back to the raw string when it does not parse.
func dateLabel(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon, Jan 2")
}

func durationLabel(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
