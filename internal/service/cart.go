package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/models"
)

type CartService struct {
	DB *gorm.DB
}

// CartLine is a cart item joined with display fields from its product.
type CartLine struct {
	models.CartItem
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (s *CartService) List(ctx context.Context, userID uint) ([]CartLine, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []CartLine{}, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		p := byID[it.ProductID]
		lines = append(lines, CartLine{CartItem: it, ProductName: p.Name, UnitPrice: p.Price})
	}
	return lines, nil
}

// Add merges on (user, product): an existing row gets the quantity summed,
// otherwise a new row is inserted. Stock is only checked at checkout.
func (s *CartService) Add(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	var product models.Product
	if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}

	var item models.CartItem
	err := s.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	switch {
	case err == nil:
		item.Quantity += quantity
		if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
			// A concurrent add won the insert; merge into its row instead.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return s.Add(ctx, userID, productID, quantity)
			}
			return nil, err
		}
		return &item, nil
	default:
		return nil, err
	}
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	var item models.CartItem
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
		}
		return nil, err
	}

	item.Quantity = quantity
	if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, itemID uint) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
