package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pay-watch.backend/internal/config"
	"pay-watch.backend/internal/infrastructure/chaindata"
	"pay-watch.backend/internal/infrastructure/jobs"
	"pay-watch.backend/internal/infrastructure/pricefeed"
	"pay-watch.backend/internal/infrastructure/repositories"
	"pay-watch.backend/internal/interfaces/http/handlers"
	"pay-watch.backend/internal/interfaces/http/middleware"
	"pay-watch.backend/internal/notify"
	"pay-watch.backend/internal/usecases"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	logger.Init(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if cfg.Redis.Enabled {
		if err := redis.Init(cfg.Redis.URL, cfg.Redis.Password); err != nil {
			// The price cache is an optimization; run without it.
			logger.Warn(context.Background(), "Redis unavailable, price caching disabled", zap.Error(err))
		}
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.Database.URL(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database not available: %w", err)
	}

	// Repositories
	invoiceRepo := repositories.NewInvoiceRepository(db)
	checkRepo := repositories.NewPaymentCheckRepository(db)
	txidRepo := repositories.NewTxidRepository(db)
	indexRepo := repositories.NewAddressIndexRepository(db)
	referralRepo := repositories.NewReferralRepository(db)
	premiumRepo := repositories.NewPremiumRepository(db)

	// External data sources
	oracle := pricefeed.NewOracle(cfg.Payment.ProviderTimeout,
		pricefeed.WithCacheTTL(cfg.Payment.PriceCacheTTL))
	aggregator := chaindata.NewAggregator(cfg.Payment.ProviderTimeout)

	notifier := notify.NewLogNotifier()

	// Usecases
	invoiceUsecase := usecases.NewInvoiceUsecase(invoiceRepo, indexRepo, oracle, cfg.Wallet, cfg.Payment.InvoiceExpiry)
	reconciler := usecases.NewReconcilerUsecase(invoiceRepo, txidRepo, aggregator, oracle, invoiceUsecase, cfg.Payment.Tolerance)
	rewards := usecases.NewRewardUsecase(referralRepo, premiumRepo, notifier)

	// Scheduler
	scheduler := jobs.NewCheckScheduler(invoiceRepo, checkRepo, reconciler, rewards, notifier, cfg.Payment)
	defer scheduler.Stop()

	if err := scheduler.ResumePending(context.Background()); err != nil {
		logger.Error(context.Background(), "failed to resume pending checks", zap.Error(err))
	}

	// Handlers
	invoiceHandler := handlers.NewInvoiceHandler(invoiceUsecase, scheduler)
	webhookHandler := handlers.NewWebhookHandler(reconciler, rewards)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	registerHealthRoute(r, sqlDB.Ping)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		invoiceHandler: invoiceHandler,
		webhookHandler: webhookHandler,
		webhookAuth:    middleware.WebhookAuthMiddleware(cfg.Webhook.Secret),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info(context.Background(), "Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
