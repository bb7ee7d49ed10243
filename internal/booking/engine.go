package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// CapacityLedger is the per-slot counter store. Reserve must be a
// single atomic check-and-increment relative to other Reserve calls on
// the same slot; that property is what prevents double-booking under
// concurrent requests.
type CapacityLedger interface {
	// EnsureSlot idempotently creates the record for a never-touched
	// slot with a zero reserved count.
	EnsureSlot(ctx context.Context, key model.SlotKey) (model.CapacityRecord, error)
	// Availability reads current state, creating the slot if missing so
	// callers always observe a valid record.
	Availability(ctx context.Context, key model.SlotKey) (model.CapacityRecord, error)
	// Reserve atomically checks reserved+qty <= total and increments.
	// ok=false means the slot could not take qty; remaining carries the
	// available count observed at that point.
	Reserve(ctx context.Context, key model.SlotKey, qty uint32) (remaining uint32, ok bool, err error)
	// Release decrements the reserved count by qty, floored at zero.
	Release(ctx context.Context, key model.SlotKey, qty uint32) error
}

// MenuCatalog resolves orderable items.
type MenuCatalog interface {
	// Get returns the item and whether it exists at all.
	Get(ctx context.Context, id uint64) (model.MenuItem, bool, error)
	// ListAvailable returns items currently on the menu, in menu order.
	ListAvailable(ctx context.Context) ([]model.MenuItem, error)
}

// UserStore resolves messaging-platform identities to user rows,
// creating them lazily on first contact.
type UserStore interface {
	GetOrCreate(ctx context.Context, externalID string) (model.User, error)
}

// ReservationStore persists reservation rows.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id uint64) (model.Reservation, bool, error)
	// MarkCancelled flips an active reservation to cancelled. updated is
	// false when the row was missing or already terminal.
	MarkCancelled(ctx context.Context, id uint64) (updated bool, err error)
	CountActive(ctx context.Context, userID uint64, fromDate string) (int, error)
	ListActive(ctx context.Context, userID uint64, fromDate string) ([]model.Reservation, error)
}

// Calendar looks up per-date overrides of the weekday business rule.
type Calendar interface {
	// OpenOverride returns (isOpen, true) when the business calendar has
	// an entry for the date, and found=false otherwise.
	OpenOverride(ctx context.Context, date string) (isOpen bool, found bool, err error)
}

// Engine is the transactional booking operation. Validation runs
// unserialized; the only contended step is the ledger Reserve, and a
// failed persist after a successful Reserve is compensated with a
// Release so the ledger and the reservation table never diverge.
type Engine struct {
	Ledger       CapacityLedger
	Menu         MenuCatalog
	Users        UserStore
	Reservations ReservationStore
	Calendar     Calendar
	Policy       Policy

	// Now is the clock; overridable in tests.
	Now func() time.Time
	// OnConfirmed, when set, is invoked after a successful booking.
	// Failures in the hook must not affect the booking outcome.
	OnConfirmed func(ctx context.Context, r model.Reservation)
}

// NewEngine wires an Engine. All stores must be non-nil; Calendar may
// be nil, in which case the plain weekday rule applies.
func NewEngine(ledger CapacityLedger, menu MenuCatalog, users UserStore, reservations ReservationStore, calendar Calendar, policy Policy) *Engine {
	if ledger == nil || menu == nil || users == nil || reservations == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{
		Ledger:       ledger,
		Menu:         menu,
		Users:        users,
		Reservations: reservations,
		Calendar:     calendar,
		Policy:       policy,
		Now:          time.Now,
	}
}

// Book validates and persists one reservation against the capacity
// ledger. On success the returned reservation is confirmed and the
// slot's reserved count includes its quantity. Every failure maps to
// exactly one taxonomy error; storage failures are wrapped as-is.
func (e *Engine) Book(ctx context.Context, externalID string, key model.SlotKey, menuItemID uint64, qty uint32) (model.Reservation, error) {
	now := e.Now().UTC()

	override, err := e.openOverride(ctx, key.Date)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("calendar lookup: %w", err)
	}
	if err := e.Policy.ValidateSlot(key, now, override); err != nil {
		return model.Reservation{}, err
	}

	item, found, err := e.Menu.Get(ctx, menuItemID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("menu lookup: %w", err)
	}
	if !found || !item.IsAvailable {
		return model.Reservation{}, ErrUnknownMenuItem
	}

	if qty < 1 || qty > e.Policy.MaxQuantity {
		return model.Reservation{}, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidQuantity, qty, e.Policy.MaxQuantity)
	}

	user, err := e.Users.GetOrCreate(ctx, externalID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("user upsert: %w", err)
	}

	// The per-user cap is checked before touching the ledger so a
	// rejected user never causes a wasted reserve/release pair.
	if e.Policy.MaxActivePerUser > 0 {
		n, err := e.Reservations.CountActive(ctx, user.ID, now.Format(model.DateLayout))
		if err != nil {
			return model.Reservation{}, fmt.Errorf("active count: %w", err)
		}
		if n >= e.Policy.MaxActivePerUser {
			return model.Reservation{}, ErrUserLimitExceeded
		}
	}

	remaining, ok, err := e.Ledger.Reserve(ctx, key, qty)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reserve: %w", err)
	}
	if !ok {
		return model.Reservation{}, &CapacityError{Slot: key.String(), Remaining: remaining}
	}

	res := model.Reservation{
		UserID:     user.ID,
		Slot:       key,
		MenuItemID: item.ID,
		ItemName:   item.Name,
		UnitPrice:  item.Price,
		Quantity:   qty,
		Status:     model.StatusConfirmed,
	}
	if err := e.Reservations.Create(ctx, &res); err != nil {
		// Compensate the successful reserve; the ledger must not keep
		// capacity for a reservation that was never written.
		if relErr := e.Ledger.Release(ctx, key, qty); relErr != nil {
			log.Printf("booking: compensating release failed for %s qty=%d: %v", key, qty, relErr)
		}
		return model.Reservation{}, fmt.Errorf("persist reservation: %w", err)
	}

	if e.OnConfirmed != nil {
		e.OnConfirmed(ctx, res)
	}
	return res, nil
}

// Cancel soft-cancels one of the caller's reservations and releases its
// quantity back to the slot ledger. The row is kept (status=cancelled)
// so capacity-accounting history survives.
func (e *Engine) Cancel(ctx context.Context, externalID string, reservationID uint64) (model.Reservation, error) {
	user, err := e.Users.GetOrCreate(ctx, externalID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("user upsert: %w", err)
	}
	res, found, err := e.Reservations.Get(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation lookup: %w", err)
	}
	// A reservation owned by someone else is reported as missing rather
	// than revealing that the id exists.
	if !found || res.UserID != user.ID {
		return model.Reservation{}, ErrReservationNotFound
	}
	if !res.Active() {
		return model.Reservation{}, ErrNotCancellable
	}
	updated, err := e.Reservations.MarkCancelled(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("cancel: %w", err)
	}
	if !updated {
		return model.Reservation{}, ErrNotCancellable
	}
	if err := e.Ledger.Release(ctx, res.Slot, res.Quantity); err != nil {
		// The row is cancelled but the ledger still holds the quantity;
		// surface the error so the caller retries or staff reconcile.
		return model.Reservation{}, fmt.Errorf("release capacity: %w", err)
	}
	res.Status = model.StatusCancelled
	return res, nil
}

func (e *Engine) openOverride(ctx context.Context, date string) (*bool, error) {
	if e.Calendar == nil {
		return nil, nil
	}
	open, found, err := e.Calendar.OpenOverride(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &open, nil
}
