package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/config"
	"github.com/Skotchmaster/marketplace/internal/handlers"
	"github.com/Skotchmaster/marketplace/internal/hash"
	authmw "github.com/Skotchmaster/marketplace/internal/middleware/auth"
	"github.com/Skotchmaster/marketplace/internal/middleware/ratelimit"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/oauth"
	"github.com/Skotchmaster/marketplace/internal/payment"
	"github.com/Skotchmaster/marketplace/internal/service"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type testAPI struct {
	e        *echo.Echo
	db       *gorm.DB
	sessions *session.Store
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	sessions := &session.Store{DB: db, TTL: time.Hour}
	notifications := &service.NotificationService{DB: db}

	e := echo.New()
	Register(e, &Deps{
		Auth:          &authmw.Middleware{Sessions: sessions},
		AuthHandler:   &handlers.AuthHandler{DB: db, Sessions: sessions},
		OAuthHandler:  &handlers.OAuthHandler{DB: db, Sessions: sessions, Google: oauth.NewGoogle("", "", "", nil)},
		Products:      &handlers.ProductHandler{DB: db},
		Search:        &handlers.SearchHandler{Index: "product"},
		Cart:          &handlers.CartHandler{Svc: &service.CartService{DB: db}},
		Orders:        &handlers.OrderHandler{Svc: &service.OrderService{DB: db, Notifications: notifications}},
		Reviews:       &handlers.ReviewHandler{Svc: &service.ReviewService{DB: db}},
		Messages:      &handlers.MessageHandler{Svc: &service.MessageService{DB: db, Notifications: notifications}},
		Notifications: &handlers.NotificationHandler{Svc: notifications},
		Admin:         &handlers.AdminHandler{DB: db},
		Payments:      &handlers.PaymentHandler{Gateway: payment.NewClient("")},
		StrictLimiter: ratelimit.New(ratelimit.LimitGeneral, ratelimit.BurstGeneral),
	})

	return &testAPI{e: e, db: db, sessions: sessions}
}

func (a *testAPI) createUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()

	pw, err := hash.HashPassword("password123")
	require.NoError(t, err)
	u := models.User{Email: email, Name: email, PasswordHash: pw, Role: role}
	require.NoError(t, a.db.Create(&u).Error)
	return &u
}

func (a *testAPI) loginAs(t *testing.T, userID uint) *http.Cookie {
	t.Helper()

	sess, err := a.sessions.Create(t.Context(), userID)
	require.NoError(t, err)
	return session.Cookie(sess.Token, sess.ExpiresAt)
}

func (a *testAPI) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Buyer",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "register must open a session")

	rec = api.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Buyer Again",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, "duplicate email must be a 409")

	rec = api.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "buyer@example.com", me.Email)
	assert.Equal(t, models.RoleBuyer, me.Role)
	assert.NotContains(t, rec.Body.String(), "password", "hash must never serialize")

	rec = api.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "buyer@example.com",
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "session must be gone after logout")
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "sneaky@example.com",
		"password": "password123",
		"name":     "Sneaky",
		"role":     "admin",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductWriteGates(t *testing.T) {
	api := setupAPI(t)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)
	seller := api.createUser(t, "seller@example.com", models.RoleSeller)

	body := map[string]any{"name": "lamp", "price": "19.99", "quantity": 5}

	rec := api.do(t, http.MethodPost, "/api/products", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/products", body, api.loginAs(t, buyer.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/products", body, api.loginAs(t, seller.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, seller.ID, created.SellerID)

	// A different seller cannot edit someone else's listing.
	rival := api.createUser(t, "rival@example.com", models.RoleSeller)
	rec = api.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", created.ID),
		map[string]any{"name": "hijacked"}, api.loginAs(t, rival.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	api := setupAPI(t)
	seller := api.createUser(t, "seller@example.com", models.RoleSeller)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)
	cookie := api.loginAs(t, buyer.ID)

	product := models.Product{
		SellerID: seller.ID, Name: "lamp", Description: "a lamp",
		Price: decimal.RequireFromString("19.99"), Quantity: 5,
	}
	require.NoError(t, api.db.Create(&product).Error)

	rec := api.do(t, http.MethodPost, "/api/cart", map[string]any{"product_id": product.ID, "quantity": 2}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodPost, "/api/cart", map[string]any{"product_id": product.ID, "quantity": 1}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/cart", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var lines []service.CartLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	rec = api.do(t, http.MethodPost, "/api/orders", nil, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("59.97")))

	var reloaded models.Product
	require.NoError(t, api.db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 2, reloaded.Quantity)

	rec = api.do(t, http.MethodGet, "/api/cart", nil, cookie)
	lines = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	assert.Empty(t, lines)

	rec = api.do(t, http.MethodGet, "/api/orders/buyer", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)

	rec = api.do(t, http.MethodGet, "/api/notifications", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list service.NotificationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Unread)
}

func TestOrderStatusRoute(t *testing.T) {
	api := setupAPI(t)
	seller := api.createUser(t, "seller@example.com", models.RoleSeller)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)
	buyerCookie := api.loginAs(t, buyer.ID)
	sellerCookie := api.loginAs(t, seller.ID)

	product := models.Product{
		SellerID: seller.ID, Name: "lamp", Description: "a lamp",
		Price: decimal.RequireFromString("10.00"), Quantity: 5,
	}
	require.NoError(t, api.db.Create(&product).Error)

	rec := api.do(t, http.MethodPost, "/api/cart", map[string]any{"product_id": product.ID, "quantity": 1}, buyerCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/orders", nil, buyerCookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	statusPath := fmt.Sprintf("/api/orders/%d/status", order.ID)

	// Buyers are blocked by the role gate.
	rec = api.do(t, http.MethodPatch, statusPath, map[string]any{"status": "processing"}, buyerCookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Skipping a step violates the transition graph.
	rec = api.do(t, http.MethodPatch, statusPath, map[string]any{"status": "shipped"}, sellerCookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, statusPath, map[string]any{"status": "processing"}, sellerCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodPatch, statusPath, map[string]any{"status": "shipped"}, sellerCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// Creation + two updates, newest first.
	rec = api.do(t, http.MethodGet, "/api/notifications", nil, buyerCookie)
	var list service.NotificationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 3)
	assert.EqualValues(t, 3, list.Unread)
	assert.Equal(t, "shipped", list.Notifications[0].Data["status"])

	// Mark the newest read.
	rec = api.do(t, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", list.Notifications[0].ID), nil, buyerCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/notifications", nil, buyerCookie)
	list = service.NotificationList{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 2, list.Unread)

	rec = api.do(t, http.MethodPut, "/api/notifications/read-all", nil, buyerCookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := setupAPI(t)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)
	admin := api.createUser(t, "admin@example.com", models.RoleAdmin)

	rec := api.do(t, http.MethodGet, "/api/admin/users", nil, api.loginAs(t, buyer.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)

	adminCookie := api.loginAs(t, admin.ID)
	rec = api.do(t, http.MethodGet, "/api/admin/users", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", buyer.ID),
		map[string]any{"role": "seller"}, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.User
	require.NoError(t, api.db.First(&updated, buyer.ID).Error)
	assert.Equal(t, models.RoleSeller, updated.Role)

	rec = api.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", buyer.ID),
		map[string]any{"role": "emperor"}, adminCookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentIntentUnconfigured(t *testing.T) {
	api := setupAPI(t)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)

	rec := api.do(t, http.MethodPost, "/api/create-payment-intent",
		map[string]any{"amount": "10.00"}, api.loginAs(t, buyer.ID))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReviewRoutes(t *testing.T) {
	api := setupAPI(t)
	seller := api.createUser(t, "seller@example.com", models.RoleSeller)
	buyer := api.createUser(t, "buyer@example.com", models.RoleBuyer)
	stranger := api.createUser(t, "stranger@example.com", models.RoleBuyer)
	buyerCookie := api.loginAs(t, buyer.ID)

	product := models.Product{
		SellerID: seller.ID, Name: "lamp", Description: "a lamp",
		Price: decimal.RequireFromString("10.00"), Quantity: 5,
	}
	require.NoError(t, api.db.Create(&product).Error)
	reviewPath := fmt.Sprintf("/api/products/%d/reviews", product.ID)

	rec := api.do(t, http.MethodPost, "/api/cart", map[string]any{"product_id": product.ID, "quantity": 1}, buyerCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/orders", nil, buyerCookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, reviewPath,
		map[string]any{"rating": 5, "comment": "great"}, buyerCookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, reviewPath,
		map[string]any{"rating": 4, "comment": "never bought"}, api.loginAs(t, stranger.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, reviewPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reviews []service.ReviewWithAuthor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "buyer@example.com", reviews[0].ReviewerName)
}
