package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/maplecart/storefront/internal/http/handlers"
	mw "github.com/maplecart/storefront/internal/http/middleware"
	"github.com/maplecart/storefront/internal/notify"
	"github.com/maplecart/storefront/internal/platform/mailer"
	"github.com/maplecart/storefront/internal/platform/payments"
	"github.com/maplecart/storefront/internal/platform/sms"
	"github.com/maplecart/storefront/internal/repo/postgres"
	"github.com/maplecart/storefront/internal/service"
	"github.com/maplecart/storefront/pkg/config"
	"github.com/maplecart/storefront/pkg/database"
	"github.com/maplecart/storefront/pkg/events"
	"github.com/maplecart/storefront/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("failed to parse redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	productRepo := postgres.NewProductRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Platform adapters, constructed once and injected
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	var mailSvc mailer.Service
	if cfg.Email.DevMode {
		mailSvc = mailer.NewDevMailer()
	} else {
		mailSvc = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	var smsSender sms.Sender
	if cfg.SMS.DevMode {
		smsSender = sms.NewDevSender()
	} else {
		smsSender = sms.NewTwilio(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.FromNumber)
	}

	// Services
	authService := service.NewAuthService(userRepo, mailSvc, smsSender, eventBus, cfg)
	catalogService := service.NewCatalogService(productRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, gateway, mailSvc, eventBus, cfg)

	h := handlers.New(authService, catalogService, orderService, cfg)
	idempotency := mw.Idempotency(mw.NewRedisStore(redisClient))

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/verify-email/{token}", h.VerifyEmail)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.Post("/resend-email-verification", h.ResendVerification)
			r.Post("/send-mobile-otp", h.SendMobileOTP)
			r.Post("/verify-mobile-otp", h.VerifyMobileOTP)
			r.Get("/me", h.Me)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/categories/list", h.ListCategories)
		r.Get("/slug/{slug}", h.GetProductBySlug)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT("admin"))
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		// Webhook authenticates via signature, not JWT.
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.With(idempotency).Post("/", h.CreateOrder)
			r.Get("/my-orders", h.MyOrders)
			r.Post("/create-payment-intent", h.CreatePaymentIntent)
			r.Get("/{id}", h.GetOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT("admin"))
			r.Get("/admin/all", h.AllOrders)
			r.Patch("/{id}/status", h.UpdateOrderStatus)
		})
	})

	worker := notify.NewWorker(eventBus, smsSender)
	if err := worker.Start(); err != nil {
		logger.Error("failed to start notify worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting storefront API", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
