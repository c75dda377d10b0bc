package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/marketplace/internal/config"
	"github.com/Skotchmaster/marketplace/internal/es"
	"github.com/Skotchmaster/marketplace/internal/handlers"
	"github.com/Skotchmaster/marketplace/internal/logging"
	authmw "github.com/Skotchmaster/marketplace/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/marketplace/internal/middleware/logging"
	"github.com/Skotchmaster/marketplace/internal/middleware/ratelimit"
	"github.com/Skotchmaster/marketplace/internal/mykafka"
	"github.com/Skotchmaster/marketplace/internal/oauth"
	"github.com/Skotchmaster/marketplace/internal/payment"
	"github.com/Skotchmaster/marketplace/internal/service"
	"github.com/Skotchmaster/marketplace/internal/session"
	httpserver "github.com/Skotchmaster/marketplace/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var producer *mykafka.Producer
	if cfg.Kafka.Address != "" {
		producer, err = mykafka.NewProducer([]string{cfg.Kafka.Address})
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	var indexer *es.Indexer
	searchHandler := &handlers.SearchHandler{Index: cfg.ES.Index}
	if cfg.ES.URL != "" {
		client, err := es.NewClient(cfg)
		if err != nil {
			log.Fatal(err)
		}
		indexer = &es.Indexer{Client: client, Index: cfg.ES.Index}
		searchHandler.ES = client
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	sessions := &session.Store{DB: db, TTL: cfg.Auth.SessionTTL}

	notifications := &service.NotificationService{DB: db}
	orderSvc := &service.OrderService{DB: db, Notifications: notifications, Producer: producer}
	cartSvc := &service.CartService{DB: db}
	reviewSvc := &service.ReviewService{DB: db}
	messageSvc := &service.MessageService{DB: db, Notifications: notifications}

	google := oauth.NewGoogle(
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.RedirectURL,
		[]byte(cfg.Auth.StateSecret),
	)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Auth:          &authmw.Middleware{Sessions: sessions},
		AuthHandler:   &handlers.AuthHandler{DB: db, Sessions: sessions, Producer: producer},
		OAuthHandler:  &handlers.OAuthHandler{DB: db, Sessions: sessions, Google: google},
		Products:      &handlers.ProductHandler{DB: db, Producer: producer, Indexer: indexer},
		Search:        searchHandler,
		Cart:          &handlers.CartHandler{Svc: cartSvc},
		Orders:        &handlers.OrderHandler{Svc: orderSvc},
		Reviews:       &handlers.ReviewHandler{Svc: reviewSvc},
		Messages:      &handlers.MessageHandler{Svc: messageSvc},
		Notifications: &handlers.NotificationHandler{Svc: notifications},
		Admin:         &handlers.AdminHandler{DB: db},
		Payments:      &handlers.PaymentHandler{Gateway: payment.NewClient(cfg.Stripe.SecretKey)},
		StrictLimiter: ratelimit.New(ratelimit.LimitStrict, ratelimit.BurstStrict),
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	logger.Info("shutdown complete")
}
