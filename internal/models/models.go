package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

// CanSell reports whether the role may create and manage product listings.
func (r Role) CanSell() bool {
	return r == RoleSeller || r == RoleAdmin
}

// CanModerate reports whether the role may manage other users and any order.
func (r Role) CanModerate() bool {
	return r == RoleAdmin
}

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition enforces the forward-only lifecycle
// pending -> processing -> shipped -> delivered, with cancellation
// allowed from any non-terminal status.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if !to.Valid() || s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusShipped
	case StatusShipped:
		return to == StatusDelivered
	}
	return false
}

const (
	NotificationOrderUpdate         = "order_update"
	NotificationSystem              = "system"
	NotificationMessage             = "message"
	NotificationModificationRequest = "modification_request"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         Role      `gorm:"not null"                 json:"role"`
	Address      string    `json:"address"`
	BankDetails  string    `json:"bank_details,omitempty"`
	GoogleID     string    `gorm:"index"                    json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"  json:"id"`
	SellerID    uint            `gorm:"index;not null"            json:"seller_id"`
	Name        string          `gorm:"not null"                  json:"name"`
	Description string          `gorm:"not null"                  json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;check:quantity>=0" json:"quantity"`
	Category    string          `gorm:"index"                     json:"category"`
	Images      []string        `gorm:"serializer:json"           json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                           json:"id"`
	UserID    uint `gorm:"index;not null;uniqueIndex:idx_cart_once" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_once"   json:"product_id"`
	Quantity  int  `gorm:"default:1;check:quantity>0"           json:"quantity"`
}

type Order struct {
	ID        uint            `gorm:"primaryKey"     json:"id"`
	BuyerID   uint            `gorm:"index;not null" json:"buyer_id"`
	Status    OrderStatus     `gorm:"not null"       json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderItem freezes the unit price at order-creation time, so later
// product price edits never change historical orders.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"     json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"order_id"`
	ProductID uint            `gorm:"not null"       json:"product_id"`
	Quantity  int             `gorm:"check:quantity>0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	ProductID uint      `gorm:"index;not null;uniqueIndex:idx_review_once" json:"product_id"`
	BuyerID   uint      `gorm:"not null;uniqueIndex:idx_review_once"   json:"buyer_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"  json:"rating"`
	Comment   string    `gorm:"not null"                               json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID         uint      `gorm:"primaryKey"     json:"id"`
	FromUserID uint      `gorm:"index;not null" json:"from_user_id"`
	ToUserID   uint      `gorm:"index;not null" json:"to_user_id"`
	Body       string    `gorm:"not null"       json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notification struct {
	ID        uint           `gorm:"primaryKey"      json:"id"`
	UserID    uint           `gorm:"index;not null"  json:"user_id"`
	Type      string         `gorm:"not null"        json:"type"`
	Data      map[string]any `gorm:"serializer:json" json:"data"`
	Read      bool           `gorm:"default:false"   json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
