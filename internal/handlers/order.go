package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/service"
)

type OrderHandler struct {
	Svc *service.OrderService
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.CreateFromCart(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// ListOrders is role-aware: admins see everything, sellers see orders
// containing their products, buyers see their own.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var orders []models.Order
	switch {
	case user.Role.CanModerate():
		orders, err = h.Svc.ListAll(ctx)
	case user.Role == models.RoleSeller:
		orders, err = h.Svc.ListBySeller(ctx, user.ID)
	default:
		orders, err = h.Svc.ListByBuyer(ctx, user.ID)
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListBuyerOrders(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListByBuyer(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.Get(c.Request().Context(), user, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(c.Request().Context(), user, id, models.OrderStatus(req.Status))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
