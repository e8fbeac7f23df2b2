package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/bloomcart/storefront-api/internal/config"
	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/handler"
	"github.com/bloomcart/storefront-api/internal/middleware"
	"github.com/bloomcart/storefront-api/internal/repository"
	"github.com/bloomcart/storefront-api/internal/service"
	"github.com/bloomcart/storefront-api/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// External gateways
	razorpayClient := gateway.NewRazorpayClient(cfg.Razorpay)
	identityClient := gateway.NewIdentityClient(cfg.Identity)
	mailer := gateway.NewMailer(cfg.SMTP)

	// Repositories
	categoryRepo := repository.NewCategoryRepository(dbPool)
	subcategoryRepo := repository.NewSubcategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	adminRepo := repository.NewAdminRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(adminRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(categoryRepo, subcategoryRepo, productRepo, redisClient)
	orderSvc := service.NewOrderService(orderRepo, paymentRepo, userRepo)
	paymentSvc := service.NewPaymentService(paymentRepo, orderRepo, razorpayClient, amqpCh,
		cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret, log)
	userSvc := service.NewUserService(userRepo, cfg.Identity.WebhookSecret, log)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	userH := handler.NewUserHandler(userSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	paymentWorker := worker.NewPaymentWorker(amqpCh, paymentRepo, orderRepo, userRepo,
		redisClient, mailer, log)

	// Router
	router := gin.Default()
	router.Use(middleware.CORS(cfg.Server.FrontendOrigin))
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	adminAuth := middleware.AdminAuth(cfg.JWT.Secret, adminRepo)
	userAuth := middleware.UserAuth(identityClient, userSvc)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth/admin")
		// Only an existing superadmin may create staff accounts; the first
		// superadmin is provisioned directly in the database.
		auth.POST("/register", adminAuth, middleware.SuperAdminOnly(), authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/logout", authH.Logout)

		categories := v1.Group("/categories")
		categories.GET("", catalogH.ListCategories)
		categories.GET("/:id", catalogH.GetCategory)
		categories.GET("/:id/subcategories", catalogH.ListCategorySubcategories)
		categories.POST("", adminAuth, catalogH.CreateCategory)
		categories.PUT("/:id", adminAuth, catalogH.UpdateCategory)
		categories.DELETE("/:id", adminAuth, catalogH.DeleteCategory)

		subcategories := v1.Group("/subcategories")
		subcategories.GET("", catalogH.ListSubcategories)
		subcategories.GET("/:id", catalogH.GetSubcategory)
		subcategories.GET("/:id/products", catalogH.ListSubcategoryProducts)
		subcategories.POST("", adminAuth, catalogH.CreateSubcategory)
		subcategories.PUT("/:id", adminAuth, catalogH.UpdateSubcategory)
		subcategories.DELETE("/:id", adminAuth, catalogH.DeleteSubcategory)

		products := v1.Group("/products")
		products.GET("", catalogH.ListProducts)
		products.GET("/:id", catalogH.GetProduct)
		products.POST("", adminAuth, catalogH.CreateProduct)
		products.PUT("/:id", adminAuth, catalogH.UpdateProduct)
		products.DELETE("/:id", adminAuth, catalogH.DeleteProduct)

		orders := v1.Group("/orders", userAuth)
		orders.POST("", orderH.CreateOrder)
		orders.GET("", orderH.ListMyOrders)
		orders.GET("/:id", orderH.GetOrder)
		orders.POST("/:id/cancel", orderH.CancelOrder)

		payments := v1.Group("/payments")
		payments.POST("/create-order", userAuth, paymentH.CreatePaymentOrder)
		payments.POST("/verify", userAuth, paymentH.VerifyPayment)
		payments.POST("/webhook", paymentH.Webhook)

		users := v1.Group("/users", userAuth)
		users.GET("/me", userH.GetProfile)
		users.PUT("/me", userH.UpdateProfile)

		v1.POST("/webhooks/identity", userH.IdentityWebhook)

		admin := v1.Group("/admin", adminAuth)
		admin.GET("/orders", orderH.ListAllOrders)
		admin.GET("/orders/:id", orderH.GetOrder)
		admin.PATCH("/orders/:id/status", orderH.UpdateStatus)
		admin.GET("/users", userH.ListUsers)
		admin.GET("/users/:id", userH.GetUser)
	}

	if err := paymentWorker.Start(ctx); err != nil {
		log.Error("start payment worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	paymentWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
