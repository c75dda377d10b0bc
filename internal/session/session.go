package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/models"
)

const CookieName = "session_token"

var ErrInvalid = errors.New("invalid session")

// Store keeps sessions server-side: an opaque token in the cookie maps to a
// row with a TTL. Expired rows are deleted lazily on resolve.
type Store struct {
	DB  *gorm.DB
	TTL time.Duration
}

func (s *Store) Create(ctx context.Context, userID uint) (*models.Session, error) {
	sess := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.TTL),
	}
	if err := s.DB.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) Resolve(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrInvalid
	}

	var sess models.Session
	if err := s.DB.WithContext(ctx).Where("token = ?", token).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalid
		}
		return nil, nil, err
	}

	if time.Now().After(sess.ExpiresAt) {
		s.DB.WithContext(ctx).Delete(&models.Session{}, sess.ID)
		return nil, nil, ErrInvalid
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalid
		}
		return nil, nil, err
	}

	return &user, &sess, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	return s.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

func Cookie(token string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func ExpiredCookie() *http.Cookie {
	return Cookie("", time.Now().Add(-time.Hour))
}
