package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "lifebee/api/swagger" // swagger docs
	"lifebee/internal/config"
	"lifebee/internal/database"
	"lifebee/internal/handler"
	"lifebee/internal/middleware"
	"lifebee/internal/notification"
	"lifebee/internal/payment"
	"lifebee/internal/repository"
	"lifebee/internal/service"
	"lifebee/internal/websocket"
	"lifebee/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           LifeBee API
// @version         1.0
// @description     Healthcare services marketplace: service requests, offers, lifecycle and payment release.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("error", "text").Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Info("Connected to PostgreSQL successfully.")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Local delivery goes straight to the hub. With Redis, the API also forwards messages
	// published by a standalone dispatcher process.
	publishers := notification.MultiPublisher{notification.NewHubPublisher(wsHub)}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		subscriber := notification.NewSubscriber(rdb, cfg.Redis.Channel, wsHub, log)
		go func() {
			if err := subscriber.Run(ctx); err != nil {
				log.Errorf("notification subscriber stopped: %v", err)
			}
		}()
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	dispatcher := notification.NewDispatcher(txManager, outboxRepo, notificationRepo, publishers, cfg.Outbox.MaxAttempts, log)
	providers := payment.NewFromConfig(cfg.Payment)

	userService := service.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	requestService := service.NewServiceRequestService(txManager, requestRepo, offerRepo, progressRepo, auditRepo, outboxRepo, dispatcher, log)
	lifecycleService := service.NewLifecycleService(service.LifecycleDeps{
		TxManager:  txManager,
		Requests:   requestRepo,
		Offers:     offerRepo,
		Progress:   progressRepo,
		Payments:   paymentRepo,
		Users:      userRepo,
		Audit:      auditRepo,
		Outbox:     outboxRepo,
		Providers:  providers,
		Currency:   cfg.Payment.Currency,
		Dispatcher: dispatcher,
		Log:        log,
	})
	paymentService := service.NewPaymentService(service.PaymentDeps{
		TxManager:  txManager,
		Requests:   requestRepo,
		Offers:     offerRepo,
		Progress:   progressRepo,
		Payments:   paymentRepo,
		Audit:      auditRepo,
		Outbox:     outboxRepo,
		Providers:  providers,
		Dispatcher: dispatcher,
		Log:        log,
	})
	reviewService := service.NewReviewService(txManager, requestRepo, progressRepo, reviewRepo, userRepo, auditRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(repository.NewStatisticsRepository(db))
	revenueService := service.NewRevenueService(repository.NewRevenueRepository(db))

	auth := middleware.NewAuth(cfg.JWT.Secret, cfg.IsProduction())

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, auth, log),
		handler.NewServiceRequestHandler(requestService, auth, log),
		handler.NewLifecycleHandler(lifecycleService, auth, log),
		handler.NewPaymentHandler(paymentService, auth, log),
		handler.NewReviewHandler(reviewService, auth, log),
		handler.NewNotificationHandler(notificationService, auth, log),
		handler.NewAuditHandler(auditService, auth, log),
		handler.NewStatisticsHandler(statisticsService, revenueService, auth, log),
	}

	// Set up Gin Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	logging := middleware.NewLoggingMiddleware(log)
	router.Use(logging.Recovery(), logging.StructuredLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret())
	})

	// Register API Routes
	api := router.Group("/api")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	var relay *notification.Relay
	if cfg.Outbox.EmbeddedRelay {
		relay = notification.NewRelay(dispatcher, cfg.Outbox.Schedule, cfg.Outbox.BatchSize, log)
		if err := relay.Start(); err != nil {
			log.Fatalf("Outbox relay failed to start: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
	if relay != nil {
		relay.Stop()
	}
	wsHub.Stop()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped")
}
