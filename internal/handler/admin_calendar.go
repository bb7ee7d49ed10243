package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/magokoro/onigiri-reservation/internal/model"
	"github.com/magokoro/onigiri-reservation/internal/repository"
)

// ListCalendar handles GET /v1/admin/calendar?from=YYYY-MM-DD. Without
// a from parameter it lists overrides from today onward.
func (h *AdminHandler) ListCalendar(c echo.Context) error {
	from := c.QueryParam("from")
	if from == "" {
		from = h.Engine.Now().UTC().Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, from); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	days, err := h.Calendar.List(c.Request().Context(), from)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": days})
}

type calendarReq struct {
	IsOpen bool   `json:"is_open"`
	Note   string `json:"note"`
}

// SetCalendarDay handles PUT /v1/admin/calendar/:date, creating or
// replacing the open/closed override for a date. This is how staff
// close a weekday for a holiday or open a special Saturday.
func (h *AdminHandler) SetCalendarDay(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	var req calendarReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	day := model.CalendarDay{Date: date, IsOpen: req.IsOpen, Note: req.Note}
	if err := h.Calendar.Upsert(c.Request().Context(), day); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, day)
}

// DeleteCalendarDay handles DELETE /v1/admin/calendar/:date, removing
// the override so the plain weekday rule applies again.
func (h *AdminHandler) DeleteCalendarDay(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if err := h.Calendar.Delete(c.Request().Context(), date); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no override for that date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
