package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/priyanshu-sharma/storefront/internal/api/handlers"
	"github.com/priyanshu-sharma/storefront/internal/api/middleware"
	"github.com/priyanshu-sharma/storefront/internal/cache"
	"github.com/priyanshu-sharma/storefront/internal/config"
	"github.com/priyanshu-sharma/storefront/internal/health"
	"github.com/priyanshu-sharma/storefront/internal/metrics"
	repository "github.com/priyanshu-sharma/storefront/internal/repositories"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/internal/telemetry"
	"github.com/priyanshu-sharma/storefront/pkg/sendgrid"
	"github.com/priyanshu-sharma/storefront/pkg/stripe"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Tracing setup
	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Otel)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("⚠️ Error flushing traces", slog.String("error", err.Error()))
		}
	}()

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup, shared by cart snapshots and the catalog cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConnect.Addr,
		Password: cfg.RedisConnect.Password,
		DB:       cfg.RedisConnect.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jwtKey := []byte(cfg.Security.JWTKey)
	stripeClient := stripe.NewStripeClient(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	productService := service.NewProductService(repos.Products, productCache)
	productHandler := handlers.NewProductHandler(productService)
	cartService := service.NewCartService(repository.NewCartRepo(redisClient), repos.Products)
	cartHandler := handlers.NewCartHandler(cartService)
	orderService := service.NewOrderService(repos.Orders)
	orderHandler := handlers.NewOrderHandler(orderService)
	notificationService := service.NewNotificationService(sendGridClient)
	checkoutService := service.NewCheckoutService(cartService, orderService, notificationService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, stripeClient, cfg.Checkout)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{
		DB:           repos.DB,
		RedisClient:  redisClient,
		StripeClient: stripeClient,
	})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.UpdateQuantity()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{productId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart", authMiddleware.Authenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/v1/checkout", authMiddleware.Authenticate(checkoutHandler.Begin()))
	routerMux.HandleFunc("GET /api/v1/checkout", authMiddleware.Authenticate(checkoutHandler.GetState()))
	routerMux.HandleFunc("POST /api/v1/checkout/shipping", authMiddleware.Authenticate(checkoutHandler.SubmitShipping()))
	routerMux.HandleFunc("POST /api/v1/checkout/pay/cod", authMiddleware.Authenticate(checkoutHandler.PayCOD()))
	routerMux.HandleFunc("POST /api/v1/checkout/pay/card", authMiddleware.Authenticate(checkoutHandler.PayCard()))
	routerMux.HandleFunc("DELETE /api/v1/checkout", authMiddleware.Authenticate(checkoutHandler.Cancel()))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("POST /api/v1/payments/webhook", checkoutHandler.Webhook())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /health", healthHandler.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Card payments may be suspended waiting on approval; give them a moment
	// to resolve before the listener is torn down.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}
}
