package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/service"
)

type CartHandler struct {
	Svc *service.CartService
}

func (h *CartHandler) GetCart(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	lines, err := h.Svc.List(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.Svc.Add(c.Request().Context(), user.ID, req.ProductID, req.Quantity)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.UpdateQuantity(c.Request().Context(), user.ID, id, req.Quantity)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) DeleteItem(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.Remove(c.Request().Context(), user.ID, id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Clear(c.Request().Context(), user.ID); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
