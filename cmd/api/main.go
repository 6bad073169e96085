package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nextfinance/internal/cache"
	"nextfinance/internal/config"
	"nextfinance/internal/database"
	"nextfinance/internal/logger"
	"nextfinance/internal/notify"
	"nextfinance/internal/receipt"
	"nextfinance/internal/server"
	"nextfinance/internal/validator"
)

// @title           NextFinance API
// @version         1.0
// @description     NextFinance is a personal finance API for accounts, transactions, recurring payments, monthly budgets and receipt scanning.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	readCache, err := cache.New(appConfig.CacheMaxCost)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer readCache.Close()

	var mailer notify.Mailer
	if appConfig.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(appConfig.ResendAPIKey, appConfig.EmailFrom, nil)
	} else {
		log.Warn("RESEND_API_KEY not set, emails will only be logged")
		mailer = notify.NewLogMailer(logger.Named("mailer"))
	}
	notifier := notify.NewNotifier(mailer, logger.Named("notifier"))
	defer notifier.Close()

	deps := server.Deps{
		DB:                   dbManager.DB(),
		Cache:                readCache,
		Notifier:             notifier,
		PipelineAPIKey:       appConfig.PipelineAPIKey,
		BudgetAlertThreshold: appConfig.BudgetAlertThreshold,
	}
	if appConfig.GeminiAPIKey != "" {
		scanner, err := receipt.NewGeminiScanner(context.Background(), appConfig.GeminiAPIKey, appConfig.GeminiModel, "")
		if err != nil {
			return fmt.Errorf("failed to create receipt scanner: %w", err)
		}
		deps.Scanner = scanner
	} else {
		log.Warn("GEMINI_API_KEY not set, receipt scanning disabled")
	}

	validator.Register()
	router := server.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting NextFinance API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
