package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/magokoro/onigiri-reservation/internal/model"
	"github.com/magokoro/onigiri-reservation/internal/repository"
)

// ListMenu handles GET /v1/admin/menu. By default only available items
// are returned; ?all=true includes disabled ones.
func (h *AdminHandler) ListMenu(c echo.Context) error {
	var (
		items []model.MenuItem
		err   error
	)
	if c.QueryParam("all") == "true" {
		items, err = h.Menu.ListAll(c.Request().Context())
	} else {
		items, err = h.Menu.ListAvailable(c.Request().Context())
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type menuItemReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       uint32 `json:"price"`
	IsAvailable *bool  `json:"is_available"`
}

// CreateMenuItem handles POST /v1/admin/menu.
func (h *AdminHandler) CreateMenuItem(c echo.Context) error {
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Price == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
	}
	item := model.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if err := h.Menu.Create(c.Request().Context(), &item); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "menu item name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /v1/admin/menu/:id. Absent fields keep
// their current values; existing reservations keep their denormalized
// name and price regardless.
func (h *AdminHandler) UpdateMenuItem(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	cur, found, err := h.Menu.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		cur.Name = name
	}
	if req.Description != "" {
		cur.Description = req.Description
	}
	if req.Price != 0 {
		cur.Price = req.Price
	}
	if req.IsAvailable != nil {
		cur.IsAvailable = *req.IsAvailable
	}

	if err := h.Menu.Update(ctx, cur); err != nil {
		switch err {
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "menu item name already exists"})
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, _, err := h.Menu.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteMenuItem handles DELETE /v1/admin/menu/:id. Items are disabled,
// never hard-deleted, so reservation history keeps pointing at them.
func (h *AdminHandler) DeleteMenuItem(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Menu.Disable(c.Request().Context(), id); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
