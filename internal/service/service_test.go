package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/config"
	"github.com/Skotchmaster/marketplace/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	u := models.User{
		Email:        email,
		Name:         email,
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func createProduct(t *testing.T, db *gorm.DB, sellerID uint, name string, price string, quantity int) *models.Product {
	t.Helper()

	p := models.Product{
		SellerID:    sellerID,
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return &p
}

func newOrderService(db *gorm.DB) *OrderService {
	return &OrderService{
		DB:            db,
		Notifications: &NotificationService{DB: db},
	}
}
