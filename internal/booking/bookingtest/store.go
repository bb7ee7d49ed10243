// Package bookingtest provides in-memory implementations of the booking
// store interfaces for tests. The ledger reproduces the atomic
// check-and-increment contract of the SQL implementation under a mutex,
// so concurrency tests exercise the same semantics without a database.
package bookingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// MemLedger is an in-memory capacity ledger.
type MemLedger struct {
	mu       sync.Mutex
	Capacity uint32
	slots    map[model.SlotKey]*model.CapacityRecord
}

func NewMemLedger(capacity uint32) *MemLedger {
	return &MemLedger{Capacity: capacity, slots: make(map[model.SlotKey]*model.CapacityRecord)}
}

func (l *MemLedger) EnsureSlot(_ context.Context, key model.SlotKey) (model.CapacityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensure(key), nil
}

func (l *MemLedger) Availability(_ context.Context, key model.SlotKey) (model.CapacityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensure(key), nil
}

func (l *MemLedger) Reserve(_ context.Context, key model.SlotKey, qty uint32) (uint32, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.ensure(key)
	if rec.ReservedCount+qty > rec.TotalCapacity {
		return rec.Available(), false, nil
	}
	rec.ReservedCount += qty
	return 0, true, nil
}

func (l *MemLedger) Release(_ context.Context, key model.SlotKey, qty uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.ensure(key)
	if rec.ReservedCount > qty {
		rec.ReservedCount -= qty
	} else {
		rec.ReservedCount = 0
	}
	return nil
}

// Reserved reports the current reserved count for a slot.
func (l *MemLedger) Reserved(key model.SlotKey) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensure(key).ReservedCount
}

func (l *MemLedger) ensure(key model.SlotKey) *model.CapacityRecord {
	rec, ok := l.slots[key]
	if !ok {
		rec = &model.CapacityRecord{Key: key, TotalCapacity: l.Capacity}
		l.slots[key] = rec
	}
	return rec
}

// MemMenu is an in-memory menu catalog.
type MemMenu struct {
	mu    sync.Mutex
	items map[uint64]model.MenuItem
}

func NewMemMenu(items ...model.MenuItem) *MemMenu {
	m := &MemMenu{items: make(map[uint64]model.MenuItem)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *MemMenu) Get(_ context.Context, id uint64) (model.MenuItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok, nil
}

func (m *MemMenu) ListAvailable(_ context.Context) ([]model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MenuItem, 0, len(m.items))
	for _, it := range m.items {
		if it.IsAvailable {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemUsers is an in-memory user store.
type MemUsers struct {
	mu     sync.Mutex
	nextID uint64
	byExt  map[string]model.User
}

func NewMemUsers() *MemUsers {
	return &MemUsers{byExt: make(map[string]model.User)}
}

func (u *MemUsers) GetOrCreate(_ context.Context, externalID string) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if usr, ok := u.byExt[externalID]; ok {
		return usr, nil
	}
	u.nextID++
	usr := model.User{ID: u.nextID, ExternalID: externalID}
	u.byExt[externalID] = usr
	return usr, nil
}

// MemReservations is an in-memory reservation store. Setting CreateErr
// makes Create fail, for exercising the engine's compensating release.
type MemReservations struct {
	mu        sync.Mutex
	nextID    uint64
	rows      map[uint64]model.Reservation
	CreateErr error
}

func NewMemReservations() *MemReservations {
	return &MemReservations{rows: make(map[uint64]model.Reservation)}
}

func (s *MemReservations) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextID++
	r.ID = s.nextID
	s.rows[r.ID] = *r
	return nil
}

func (s *MemReservations) Get(_ context.Context, id uint64) (model.Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok, nil
}

func (s *MemReservations) MarkCancelled(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || !r.Active() {
		return false, nil
	}
	r.Status = model.StatusCancelled
	s.rows[id] = r
	return true, nil
}

func (s *MemReservations) CountActive(_ context.Context, userID uint64, fromDate string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.Active() && r.Slot.Date >= fromDate {
			n++
		}
	}
	return n, nil
}

func (s *MemReservations) ListActive(_ context.Context, userID uint64, fromDate string) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.rows {
		if r.UserID == userID && r.Active() && r.Slot.Date >= fromDate {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot.Date != out[j].Slot.Date {
			return out[i].Slot.Date < out[j].Slot.Date
		}
		return out[i].Slot.Time < out[j].Slot.Time
	})
	return out, nil
}

// ActiveQuantity sums active quantities booked into a slot, for
// checking the ledger stays consistent with the rows.
func (s *MemReservations) ActiveQuantity(key model.SlotKey) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint32
	for _, r := range s.rows {
		if r.Slot == key && r.Active() {
			total += r.Quantity
		}
	}
	return total
}

// MemCalendar is an in-memory business calendar keyed by date.
type MemCalendar struct {
	mu   sync.Mutex
	days map[string]bool
}

func NewMemCalendar() *MemCalendar {
	return &MemCalendar{days: make(map[string]bool)}
}

// Set records an open/closed override for a date.
func (c *MemCalendar) Set(date string, isOpen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[date] = isOpen
}

func (c *MemCalendar) OpenOverride(_ context.Context, date string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	open, found := c.days[date]
	return open, found, nil
}
