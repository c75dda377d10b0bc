package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/mykafka"
)

type OrderService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Producer      *mykafka.Producer
}

// CreateFromCart turns the buyer's cart into an order. Stock checks, the
// order and item inserts, the stock decrements and the cart clear all run
// in one transaction, so a shortfall on any line leaves nothing behind.
func (svc *OrderService) CreateFromCart(ctx context.Context, buyerID uint) (*models.Order, error) {
	var order *models.Order

	err := svc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart []models.CartItem
		if err := tx.Where("user_id = ?", buyerID).Order("id ASC").Find(&cart).Error; err != nil {
			return err
		}
		if len(cart) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrValidation)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(cart))
		for _, ci := range cart {
			var product models.Product
			if err := tx.First(&product, ci.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrNotFound, ci.ProductID)
				}
				return err
			}

			// Conditional decrement: the guard makes two concurrent
			// checkouts race on the row update, not on a stale read.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND quantity >= ?", ci.ProductID, ci.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", ci.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w for %q", ErrOutOfStock, product.Name)
			}

			items = append(items, models.OrderItem{
				ProductID: ci.ProductID,
				Quantity:  ci.Quantity,
				UnitPrice: product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		}

		o := models.Order{
			BuyerID: buyerID,
			Status:  models.StatusPending,
			Total:   total,
			Items:   items,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", buyerID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	l := logging.FromContext(ctx)
	if err := svc.Notifications.NotifyOrderCreated(ctx, buyerID, order.ID); err != nil {
		l.Error("order notification failed", "order_id", order.ID, "error", err)
	}
	if err := svc.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"buyer_id": buyerID,
		"total":    order.Total,
	}); err != nil {
		l.Error("kafka publish failed", "order_id", order.ID, "error", err)
	}

	return order, nil
}

// UpdateStatus moves an order along the lifecycle. The caller must be an
// admin or sell at least one product on the order. Exactly one notification
// goes to the buyer per successful change.
func (svc *OrderService) UpdateStatus(ctx context.Context, caller *models.User, orderID uint, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	var order models.Order
	if err := svc.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if !caller.Role.CanModerate() {
		sells, err := svc.sellsOnOrder(ctx, caller.ID, &order)
		if err != nil {
			return nil, err
		}
		if !sells {
			return nil, fmt.Errorf("%w: not a seller on this order", ErrForbidden)
		}
	}

	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", ErrValidation, order.Status, to)
	}

	// Guarded write: the update only lands if the status is still the one
	// the transition was checked against, so a concurrent change cannot
	// resurrect a cancelled order.
	res := svc.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order %d changed concurrently", ErrValidation, order.ID)
	}
	order.Status = to

	l := logging.FromContext(ctx)
	if err := svc.Notifications.NotifyOrderStatus(ctx, order.BuyerID, order.ID, to); err != nil {
		l.Error("order notification failed", "order_id", order.ID, "error", err)
	}
	if err := svc.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_status_updated",
		"order_id": order.ID,
		"buyer_id": order.BuyerID,
		"status":   string(to),
	}); err != nil {
		l.Error("kafka publish failed", "order_id", order.ID, "error", err)
	}

	return &order, nil
}

func (svc *OrderService) sellsOnOrder(ctx context.Context, sellerID uint, order *models.Order) (bool, error) {
	ids := make([]uint, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	if len(ids) == 0 {
		return false, nil
	}

	var count int64
	err := svc.DB.WithContext(ctx).Model(&models.Product{}).
		Where("seller_id = ? AND id IN ?", sellerID, ids).
		Count(&count).Error
	return count > 0, err
}

// Get returns the order when the caller is its buyer, an admin, or a seller
// with a product on it.
func (svc *OrderService) Get(ctx context.Context, caller *models.User, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := svc.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if order.BuyerID == caller.ID || caller.Role.CanModerate() {
		return &order, nil
	}
	sells, err := svc.sellsOnOrder(ctx, caller.ID, &order)
	if err != nil {
		return nil, err
	}
	if !sells {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}
	return &order, nil
}

func (svc *OrderService) ListByBuyer(ctx context.Context, buyerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := svc.DB.WithContext(ctx).Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// ListBySeller returns orders containing at least one of the seller's products.
func (svc *OrderService) ListBySeller(ctx context.Context, sellerID uint) ([]models.Order, error) {
	var ids []uint
	err := svc.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Distinct("order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("products.seller_id = ?", sellerID).
		Pluck("order_items.order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Order{}, nil
	}

	var orders []models.Order
	err = svc.DB.WithContext(ctx).Preload("Items").
		Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func (svc *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := svc.DB.WithContext(ctx).Preload("Items").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}
