package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/service"
)

type MessageHandler struct {
	Svc *service.MessageService
}

func (h *MessageHandler) ListConversations(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	convs, err := h.Svc.Conversations(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, convs)
}

func (h *MessageHandler) GetThread(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	otherID, err := pathID(c, "userId")
	if err != nil {
		return err
	}

	msgs, err := h.Svc.Thread(c.Request().Context(), user.ID, otherID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *MessageHandler) Send(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ToUserID uint   `json:"to_user_id"`
		Body     string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	msg, err := h.Svc.Send(c.Request().Context(), user.ID, req.ToUserID, req.Body)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
