package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/models"
)

type MessageService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func (s *MessageService) Send(ctx context.Context, fromID, toID uint, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body required", ErrValidation)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrValidation)
	}

	var recipient models.User
	if err := s.DB.WithContext(ctx).First(&recipient, toID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, toID)
		}
		return nil, err
	}

	msg := models.Message{FromUserID: fromID, ToUserID: toID, Body: body}
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}

	if err := s.Notifications.Create(ctx, toID, models.NotificationMessage, map[string]any{
		"message_id":   msg.ID,
		"from_user_id": fromID,
	}); err != nil {
		logging.FromContext(ctx).Error("message notification failed", "message_id", msg.ID, "error", err)
	}

	return &msg, nil
}

// Thread returns the two-way conversation with another user, oldest first.
func (s *MessageService) Thread(ctx context.Context, userID, otherID uint) ([]models.Message, error) {
	var other models.User
	if err := s.DB.WithContext(ctx).First(&other, otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, otherID)
		}
		return nil, err
	}

	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// Conversation summarizes a partner and the most recent message exchanged.
type Conversation struct {
	UserID      uint           `json:"user_id"`
	UserName    string         `json:"user_name"`
	LastMessage models.Message `json:"last_message"`
}

func (s *MessageService) Conversations(ctx context.Context, userID uint) ([]Conversation, error) {
	var msgs []models.Message
	if err := s.DB.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	convs := make([]Conversation, 0)
	for _, m := range msgs {
		partner := m.FromUserID
		if partner == userID {
			partner = m.ToUserID
		}
		if seen[partner] {
			continue
		}
		seen[partner] = true
		convs = append(convs, Conversation{UserID: partner, LastMessage: m})
	}
	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]uint, 0, len(convs))
	for _, cv := range convs {
		ids = append(ids, cv.UserID)
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	for i := range convs {
		convs[i].UserName = names[convs[i].UserID]
	}
	return convs, nil
}
