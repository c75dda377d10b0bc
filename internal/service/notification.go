package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/models"
)

type NotificationService struct {
	DB *gorm.DB
}

func (s *NotificationService) Create(ctx context.Context, userID uint, typ string, data map[string]any) error {
	n := models.Notification{
		UserID: userID,
		Type:   typ,
		Data:   data,
	}
	return s.DB.WithContext(ctx).Create(&n).Error
}

// NotifyOrderCreated and NotifyOrderStatus are called after the order
// transaction commits; callers treat failures as best-effort.
func (s *NotificationService) NotifyOrderCreated(ctx context.Context, buyerID, orderID uint) error {
	return s.Create(ctx, buyerID, models.NotificationOrderUpdate, map[string]any{
		"order_id": orderID,
		"status":   string(models.StatusPending),
		"message":  fmt.Sprintf("Your order #%d has been placed.", orderID),
	})
}

func (s *NotificationService) NotifyOrderStatus(ctx context.Context, buyerID, orderID uint, status models.OrderStatus) error {
	var msg string
	switch status {
	case models.StatusProcessing:
		msg = fmt.Sprintf("Your order #%d is being processed.", orderID)
	case models.StatusShipped:
		msg = fmt.Sprintf("Your order #%d has been shipped.", orderID)
	case models.StatusDelivered:
		msg = fmt.Sprintf("Your order #%d has been delivered.", orderID)
	case models.StatusCancelled:
		msg = fmt.Sprintf("Your order #%d has been cancelled.", orderID)
	default:
		msg = fmt.Sprintf("Your order #%d status updated to %s.", orderID, status)
	}

	return s.Create(ctx, buyerID, models.NotificationOrderUpdate, map[string]any{
		"order_id": orderID,
		"status":   string(status),
		"message":  msg,
	})
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (s *NotificationService) ListByUser(ctx context.Context, userID uint) (*NotificationList, error) {
	var out NotificationList
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out.Notifications).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&out.Unread).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %d", ErrNotFound, id)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

func (s *NotificationService) Get(ctx context.Context, userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: notification %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &n, nil
}
