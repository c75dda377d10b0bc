package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/service"
)

type ReviewHandler struct {
	Svc *service.ReviewService
}

func (h *ReviewHandler) ListReviews(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	reviews, err := h.Svc.ListByProduct(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	review, err := h.Svc.Create(c.Request().Context(), user.ID, id, req.Rating, req.Comment)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}
