package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/model"
	"github.com/magokoro/onigiri-reservation/internal/repository"
)

// AdminHandler bundles dependencies for the staff REST API.
type AdminHandler struct {
	Engine       *booking.Engine
	Reservations *repository.ReservationRepo
	Menu         *repository.MenuRepo
	Calendar     *repository.CalendarRepo
	Ledger       *repository.CapacityRepo
}

func NewAdminHandler(engine *booking.Engine, res *repository.ReservationRepo, menu *repository.MenuRepo, cal *repository.CalendarRepo, ledger *repository.CapacityRepo) *AdminHandler {
	return &AdminHandler{Engine: engine, Reservations: res, Menu: menu, Calendar: cal, Ledger: ledger}
}

// ListReservations handles GET /v1/admin/reservations with optional
// status, from and to query filters.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	f := repository.ListFilter{
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	}
	if f.Status != "" && !model.ValidStatus(f.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	for _, d := range []string{f.From, f.To} {
		if d != "" {
			if _, err := time.Parse(model.DateLayout, d); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
			}
		}
	}
	items, err := h.Reservations.List(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetReservation handles GET /v1/admin/reservations/:id.
func (h *AdminHandler) GetReservation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	d, err := h.Reservations.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, d)
}

type createReservationReq struct {
	UserExternalID string `json:"user_external_id"`
	Date           string `json:"reservation_date"`
	TimeSlot       string `json:"time_slot"`
	MenuItemID     uint64 `json:"menu_item_id"`
	Quantity       uint32 `json:"quantity"`
}

// CreateReservation handles POST /v1/admin/reservations. Staff bookings
// go through the same engine as chat bookings, so the ledger, the
// per-user cap and the business rules hold no matter who books.
func (h *AdminHandler) CreateReservation(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserExternalID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_external_id required"})
	}
	key := model.SlotKey{Date: req.Date, Time: req.TimeSlot}
	res, err := h.Engine.Book(c.Request().Context(), req.UserExternalID, key, req.MenuItemID, req.Quantity)
	if err != nil {
		return h.bookingError(c, err)
	}
	d, err := h.Reservations.GetDetail(c.Request().Context(), res.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusCreated, d)
}

type updateReservationReq struct {
	Date       string `json:"reservation_date"`
	TimeSlot   string `json:"time_slot"`
	MenuItemID uint64 `json:"menu_item_id"`
	Quantity   uint32 `json:"quantity"`
	Status     string `json:"status"`
}

// UpdateReservation handles PUT /v1/admin/reservations/:id. The new
// slot's capacity is reserved before the row is rewritten and the old
// slot released after, so the ledger never undercounts during the move.
// Status may move between pending/confirmed/completed here; cancelling
// goes through the cancel endpoint so the release accounting stays in
// one place.
func (h *AdminHandler) UpdateReservation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	cur, found, err := h.Reservations.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}

	// Defaults: absent fields keep their current values.
	if req.Date == "" {
		req.Date = cur.Slot.Date
	}
	if req.TimeSlot == "" {
		req.TimeSlot = cur.Slot.Time
	}
	if req.MenuItemID == 0 {
		req.MenuItemID = cur.MenuItemID
	}
	if req.Quantity == 0 {
		req.Quantity = cur.Quantity
	}
	if req.Status == "" {
		req.Status = cur.Status
	}

	if !model.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	if req.Status == model.StatusCancelled || cur.Status == model.StatusCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "use the cancel endpoint to change cancellation state"})
	}
	if !booking.ValidTimeSlot(req.TimeSlot) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown time slot"})
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_date must be YYYY-MM-DD"})
	}
	if req.Quantity < 1 || req.Quantity > h.Engine.Policy.MaxQuantity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity out of range"})
	}

	item, foundItem, err := h.Menu.Get(ctx, req.MenuItemID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !foundItem {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
	}

	newKey := model.SlotKey{Date: req.Date, Time: req.TimeSlot}
	moved := newKey != cur.Slot || req.Quantity != cur.Quantity

	if moved {
		remaining, ok, err := h.Ledger.Reserve(ctx, newKey, req.Quantity)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !ok {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     "slot capacity exceeded",
				"remaining": remaining,
			})
		}
	}

	p := repository.UpdateParams{
		Date:       req.Date,
		TimeSlot:   req.TimeSlot,
		MenuItemID: item.ID,
		ItemName:   item.Name,
		UnitPrice:  item.Price,
		Quantity:   req.Quantity,
		Status:     req.Status,
	}
	if err := h.Reservations.Update(ctx, id, p); err != nil {
		if moved {
			if relErr := h.Ledger.Release(ctx, newKey, req.Quantity); relErr != nil {
				log.Printf("admin: compensating release failed for %s qty=%d: %v", newKey, req.Quantity, relErr)
			}
		}
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if moved {
		if err := h.Ledger.Release(ctx, cur.Slot, cur.Quantity); err != nil {
			log.Printf("admin: release of old slot %s qty=%d failed: %v", cur.Slot, cur.Quantity, err)
		}
	}

	d, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, d)
}

// CancelReservation handles PUT /v1/admin/reservations/:id/cancel. It
// applies the same soft-cancel plus ledger release as the chat flow,
// but without the ownership check since staff act on any reservation.
func (h *AdminHandler) CancelReservation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	cur, found, err := h.Reservations.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	if !cur.Active() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not active"})
	}
	updated, err := h.Reservations.MarkCancelled(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	if !updated {
		// Lost a race with another cancel.
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not active"})
	}
	if err := h.Ledger.Release(ctx, cur.Slot, cur.Quantity); err != nil {
		log.Printf("admin: release for cancelled reservation %d failed: %v", id, err)
	}

	d, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteReservation handles DELETE /v1/admin/reservations/:id. Hard
// deletion is the staff escape hatch and deliberately skips the ledger
// release: an active row vanishes from history, so its slot capacity
// must be reconciled by hand. Normal removal is the cancel endpoint.
func (h *AdminHandler) DeleteReservation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	cur, found, err := h.Reservations.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	if cur.Active() {
		log.Printf("admin: hard delete of active reservation %d (%s qty=%d); slot capacity not released",
			id, cur.Slot, cur.Quantity)
	}
	if err := h.Reservations.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// StatsSummary handles GET /v1/admin/reservations/stats/summary.
func (h *AdminHandler) StatsSummary(c echo.Context) error {
	s, err := h.Reservations.Summary(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// StatsMenu handles GET /v1/admin/reservations/stats/menu.
func (h *AdminHandler) StatsMenu(c echo.Context) error {
	items, err := h.Reservations.CountByMenu(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// StatsTime handles GET /v1/admin/reservations/stats/time.
func (h *AdminHandler) StatsTime(c echo.Context) error {
	items, err := h.Reservations.CountByTimeSlot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// bookingError maps engine taxonomy errors to HTTP responses for the
// admin create endpoint.
func (h *AdminHandler) bookingError(c echo.Context, err error) error {
	var capErr *booking.CapacityError
	switch {
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "slot capacity exceeded",
			"remaining": capErr.Remaining,
		})
	case errors.Is(err, booking.ErrUnknownMenuItem):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
	case errors.Is(err, booking.ErrInvalidSlot):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrUserLimitExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "user has too many active reservations"})
	default:
		log.Printf("admin: booking failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
}
