package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/models"
)

type ReviewService struct {
	DB *gorm.DB
}

// Create requires a prior purchase: the buyer must appear on an order that
// contains the product.
func (s *ReviewService) Create(ctx context.Context, buyerID, productID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: comment required", ErrValidation)
	}

	var product models.Product
	if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}

	purchased, err := s.hasPurchased(ctx, buyerID, productID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, fmt.Errorf("%w: only buyers of this product can review it", ErrForbidden)
	}

	var existing models.Review
	err = s.DB.WithContext(ctx).Where("product_id = ? AND buyer_id = ?", productID, buyerID).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: product already reviewed", ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	review := models.Review{
		ProductID: productID,
		BuyerID:   buyerID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.DB.WithContext(ctx).Create(&review).Error; err != nil {
		// Concurrent duplicate past the pre-check lands on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: product already reviewed", ErrConflict)
		}
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) hasPurchased(ctx context.Context, buyerID, productID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.buyer_id = ? AND order_items.product_id = ?", buyerID, productID).
		Count(&count).Error
	return count > 0, err
}

// ReviewWithAuthor carries the reviewer's display name next to the review.
type ReviewWithAuthor struct {
	models.Review
	ReviewerName string `json:"reviewer_name"`
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID uint) ([]ReviewWithAuthor, error) {
	var reviews []models.Review
	if err := s.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return []ReviewWithAuthor{}, nil
	}

	ids := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.BuyerID)
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	out := make([]ReviewWithAuthor, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ReviewWithAuthor{Review: r, ReviewerName: names[r.BuyerID]})
	}
	return out, nil
}
