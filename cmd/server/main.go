package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/gateway"
	"nclexkeys/backend/internal/handler"
	"nclexkeys/backend/internal/metrics"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/internal/service"
	"nclexkeys/backend/pkg/clock"
	jwtpkg "nclexkeys/backend/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var redisClient *redis.Client
	if cfg.State.Backend == "redis" {
		redisClient, err = config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}
	stateStore, err := repository.NewStateStore(cfg.State.Backend, redisClient)
	if err != nil {
		logger.Fatal("failed to init state store", zap.Error(err))
	}
	logger.Info("state store ready", zap.String("backend", cfg.State.Backend))

	// 6. Initialize repositories
	userRepo := repository.NewPGUserRepository(db)
	codeRepo := repository.NewPGRegistrationCodeRepository(db)
	paymentRepo := repository.NewPGPaymentRepository(db)
	gatewayRepo := repository.NewPGPaymentGatewayRepository(db)
	notificationRepo := repository.NewPGNotificationRepository(db)
	tx := repository.NewTransactor(db)

	// 7. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 8. Initialize services
	clk := clock.New()
	mailer, err := service.NewMailSender(cfg.SMTP, logger)
	if err != nil {
		logger.Fatal("failed to init mail sender", zap.Error(err))
	}
	pricing, err := service.NewPricing(cfg.Registration.Pricing)
	if err != nil {
		logger.Fatal("invalid registration pricing", zap.Error(err))
	}
	platformFee, err := decimal.NewFromString(cfg.Payments.PlatformFeePercentage)
	if err != nil {
		logger.Fatal("invalid platform fee percentage", zap.Error(err))
	}
	registry, err := gateway.NewRegistryFromConfig(cfg.Payments)
	if err != nil {
		logger.Fatal("invalid payment gateway config", zap.Error(err))
	}
	logger.Info("payment gateways loaded", zap.Strings("gateways", registry.Names()))

	codeService := service.NewRegistrationCodeService(codeRepo, tx, mailer, clk, logger, pricing, cfg.Registration)
	authService := service.NewAuthService(userRepo, codeService, tx, stateStore, jwtManager, mailer, logger, cfg.Server.FrontendURL)
	paymentService := service.NewPaymentService(paymentRepo, gatewayRepo, clk, logger, platformFee)
	notificationService := service.NewNotificationService(notificationRepo)
	webhookService := service.NewWebhookService(
		registry, paymentRepo, notificationService, tx, stateStore, mailer, clk, logger, cfg.Payments.WebhookDedupTTL,
	)

	// 9. Metrics
	if cfg.Metrics.Enabled {
		metrics.MustRegister()
	}

	// 10. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, handler.Handlers{
		Health:           handler.NewHealthHandler(db, redisClient),
		Auth:             handler.NewAuthHandler(authService),
		RegistrationCode: handler.NewRegistrationCodeHandler(codeService, logger),
		Payment:          handler.NewPaymentHandler(paymentService),
		Webhook:          handler.NewWebhookHandler(webhookService, logger),
		Notification:     handler.NewNotificationHandler(notificationService),
		Admin:            handler.NewAdminHandler(codeService, paymentService),
	})

	// 11. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 12. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
