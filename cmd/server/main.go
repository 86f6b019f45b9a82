package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v79"

	"github.com/AdGenMCM/Updated-AdGen/internal/config"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
	"github.com/AdGenMCM/Updated-AdGen/internal/infrastructure/billing"
	"github.com/AdGenMCM/Updated-AdGen/internal/infrastructure/cache"
	"github.com/AdGenMCM/Updated-AdGen/internal/infrastructure/database"
	"github.com/AdGenMCM/Updated-AdGen/internal/interfaces/http/handlers"
	"github.com/AdGenMCM/Updated-AdGen/internal/interfaces/http/middleware"
	"github.com/AdGenMCM/Updated-AdGen/internal/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	stripe.Key = cfg.Stripe.SecretKey
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	plans, err := services.NewPlanTable(cfg.Stripe.PriceMap)
	if err != nil {
		log.Fatalf("Invalid price map: %v", err)
	}

	userRepo := database.NewUserRepository(db)
	entitlementRepo := database.NewEntitlementRepository(db.DB)
	usageRepo := database.NewUsageRepository(db.DB)
	customerRepo := database.NewCustomerIndexRepository(db.DB)

	jwtService := services.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiration)*time.Second)
	authService := services.NewAuthService(userRepo, jwtService)
	billingService := services.NewBillingService(
		entitlementRepo, customerRepo, billing.NewStripeGateway(),
		plans, cfg.Server.FrontendURL, logger,
	)
	usageService := services.NewUsageService(usageRepo, entitlementRepo, logger)
	adService := services.NewAdService(
		providers.NewOpenAIClient(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel),
		providers.NewIdeogramClient(cfg.AI.IdeogramKey),
		logger,
	)

	authHandler := handlers.NewAuthHandler(authService)
	billingHandler := handlers.NewBillingHandler(billingService)
	webhookHandler := handlers.NewWebhookHandler(billingService, redisClient, cfg.Stripe.WebhookSecret, logger)
	usageHandler := handlers.NewUsageHandler(usageService)
	adHandler := handlers.NewAdHandler(adService, usageService, billingService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.FrontendURL))
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "healthy", "service": "adgen"}
		if err := db.Health(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = err.Error()
		}
		c.JSON(status, body)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	// Webhook is public: authentication is the Stripe signature.
	router.POST("/api/billing/webhook", webhookHandler.Handle)

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.JWTAuthMiddleware(authService))

	apiGroup.POST("/billing/checkout", billingHandler.CreateCheckout)
	apiGroup.POST("/billing/portal", billingHandler.CreatePortal)
	apiGroup.GET("/billing/sync", billingHandler.Sync)
	apiGroup.GET("/billing/entitlement", billingHandler.GetEntitlement)
	apiGroup.GET("/usage", usageHandler.Peek)
	apiGroup.POST("/generate-ad", adHandler.Generate)
	apiGroup.POST("/optimize-ad", adHandler.Optimize)

	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	adminGroup.GET("/usage/:account_id", usageHandler.PeekAccount)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server stopped")
}
