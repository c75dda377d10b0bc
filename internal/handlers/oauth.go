package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/oauth"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type OAuthHandler struct {
	DB       *gorm.DB
	Sessions *session.Store
	Google   *oauth.Google
}

func (h *OAuthHandler) GoogleStart(c echo.Context) error {
	if !h.Google.Configured() {
		return echo.NewHTTPError(http.StatusNotFound, "google login not configured")
	}

	state, err := h.Google.SignState()
	if err != nil {
		return serviceError(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthCodeURL(state))
}

func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	if !h.Google.Configured() {
		return echo.NewHTTPError(http.StatusNotFound, "google login not configured")
	}

	if err := h.Google.VerifyState(c.QueryParam("state")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	identity, err := h.Google.Exchange(c.Request().Context(), code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "google login failed")
	}

	user, err := h.upsertUser(c, identity)
	if err != nil {
		return serviceError(c, err)
	}

	sess, err := h.Sessions.Create(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	c.SetCookie(session.Cookie(sess.Token, sess.ExpiresAt))

	return c.Redirect(http.StatusFound, "/")
}

// upsertUser links by google id first, then by email, and otherwise creates
// a buyer account without a usable password.
func (h *OAuthHandler) upsertUser(c echo.Context, id *oauth.Identity) (*models.User, error) {
	var user models.User
	err := h.DB.Where("google_id = ?", id.Sub).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := strings.ToLower(id.Email)
	err = h.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		user.GoogleID = id.Sub
		if err := h.DB.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Email:        email,
		Name:         id.Name,
		PasswordHash: "!oauth",
		Role:         models.RoleBuyer,
		GoogleID:     id.Sub,
	}
	if user.Name == "" {
		user.Name = email
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
