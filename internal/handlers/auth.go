package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/hash"
	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/mykafka"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type AuthHandler struct {
	DB       *gorm.DB
	Sessions *session.Store
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Address  string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "valid email required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleBuyer
	}
	// Admin accounts are assigned by other admins, never self-registered.
	if role != models.RoleBuyer && role != models.RoleSeller {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be buyer or seller")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         role,
		Address:      req.Address,
	}
	// The unique index on email is the source of truth, so two concurrent
	// registrations cannot slip past a pre-check.
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		}
		return serviceError(c, err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	if err := h.openSession(c, user.ID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if err := h.openSession(c, user.ID); err != nil {
		return serviceError(c, err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})

	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	cookie, err := c.Cookie(session.CookieName)
	if err == nil {
		if err := h.Sessions.Delete(c.Request().Context(), cookie.Value); err != nil {
			return serviceError(c, err)
		}
	}
	c.SetCookie(session.ExpiredCookie())
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) openSession(c echo.Context, userID uint) error {
	sess, err := h.Sessions.Create(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	c.SetCookie(session.Cookie(sess.Token, sess.ExpiresAt))
	return nil
}
