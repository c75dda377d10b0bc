package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/handlers"
	authmw "github.com/Skotchmaster/marketplace/internal/middleware/auth"
	"github.com/Skotchmaster/marketplace/internal/middleware/ratelimit"
	"github.com/Skotchmaster/marketplace/internal/models"
)

type Deps struct {
	Auth          *authmw.Middleware
	AuthHandler   *handlers.AuthHandler
	OAuthHandler  *handlers.OAuthHandler
	Products      *handlers.ProductHandler
	Search        *handlers.SearchHandler
	Cart          *handlers.CartHandler
	Orders        *handlers.OrderHandler
	Reviews       *handlers.ReviewHandler
	Messages      *handlers.MessageHandler
	Notifications *handlers.NotificationHandler
	Admin         *handlers.AdminHandler
	Payments      *handlers.PaymentHandler

	StrictLimiter *ratelimit.Limiter
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	auth := api.Group("/auth", d.StrictLimiter.Middleware)
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.RequireLogin)
	auth.GET("/google", d.OAuthHandler.GoogleStart)
	auth.GET("/google/callback", d.OAuthHandler.GoogleCallback)

	products := api.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/search", d.Search.Search)
	products.GET("/:id", d.Products.GetProduct)
	products.GET("/:id/reviews", d.Reviews.ListReviews)
	products.POST("/:id/reviews", d.Reviews.CreateReview, d.Auth.RequireLogin)

	sellerOnly := []echo.MiddlewareFunc{d.Auth.RequireLogin, authmw.RequireRole(models.RoleSeller, models.RoleAdmin)}
	products.POST("", d.Products.CreateProduct, sellerOnly...)
	products.PUT("/:id", d.Products.PatchProduct, sellerOnly...)
	products.PATCH("/:id", d.Products.PatchProduct, sellerOnly...)
	products.DELETE("/:id", d.Products.DeleteProduct, sellerOnly...)

	cart := api.Group("/cart", d.Auth.RequireLogin)
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.PUT("/:id", d.Cart.UpdateItem)
	cart.DELETE("", d.Cart.ClearCart)
	cart.DELETE("/:id", d.Cart.DeleteItem)

	orders := api.Group("/orders", d.Auth.RequireLogin)
	orders.GET("", d.Orders.ListOrders)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("/buyer", d.Orders.ListBuyerOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.PATCH("/:id/status", d.Orders.UpdateStatus, authmw.RequireRole(models.RoleSeller, models.RoleAdmin))

	messages := api.Group("/messages", d.Auth.RequireLogin)
	messages.GET("", d.Messages.ListConversations)
	messages.POST("", d.Messages.Send)
	messages.GET("/:userId", d.Messages.GetThread)

	notifications := api.Group("/notifications", d.Auth.RequireLogin)
	notifications.GET("", d.Notifications.ListNotifications)
	notifications.PUT("/read-all", d.Notifications.MarkAllRead)
	notifications.PUT("/:id/read", d.Notifications.MarkRead)

	admin := api.Group("/admin", d.Auth.RequireLogin, authmw.RequireRole(models.RoleAdmin))
	admin.GET("/users", d.Admin.ListUsers)
	admin.PATCH("/users/:id", d.Admin.PatchUser)

	api.POST("/create-payment-intent", d.Payments.CreatePaymentIntent, d.StrictLimiter.Middleware, d.Auth.RequireLogin)
}
