package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/service"
)

type NotificationHandler struct {
	Svc *service.NotificationService
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	list, err := h.Svc.ListByUser(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.MarkRead(c.Request().Context(), user.ID, id); err != nil {
		return serviceError(c, err)
	}

	n, err := h.Svc.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	if err := h.Svc.MarkAllRead(c.Request().Context(), user.ID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all notifications marked read"})
}
