package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/payment"
)

type PaymentHandler struct {
	Gateway *payment.Client
}

// CreatePaymentIntent takes the amount in currency units and hands the
// gateway its smallest-unit equivalent. Confirmation stays client-side.
func (h *PaymentHandler) CreatePaymentIntent(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	if !h.Gateway.Configured() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payments not configured")
	}

	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !req.Amount.IsPositive() {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	cents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	intent, err := h.Gateway.CreateIntent(c.Request().Context(), cents, req.Currency)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("payment intent failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	return c.JSON(http.StatusOK, echo.Map{"clientSecret": intent.ClientSecret})
}
