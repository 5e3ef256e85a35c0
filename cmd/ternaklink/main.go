package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ternaklink/ternaklink/internal/app"
	"github.com/ternaklink/ternaklink/internal/auth"
	"github.com/ternaklink/ternaklink/internal/customers"
	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/masterdata"
	"github.com/ternaklink/ternaklink/internal/platform/db"
	"github.com/ternaklink/ternaklink/internal/receivables"
	"github.com/ternaklink/ternaklink/internal/shared"
	"github.com/ternaklink/ternaklink/internal/shipments"
	"github.com/ternaklink/ternaklink/internal/stock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	businessTZ, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Error("load business timezone", slog.Any("error", err), slog.String("tz", cfg.BusinessTimezone))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ternaklink_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(pool)), sessionManager)

	customersHandler := customers.NewHandler(logger,
		customers.NewService(customers.NewRepository(pool)))

	masterRepo := masterdata.NewRepository(pool)
	masterHandler := masterdata.NewHandler(logger, masterRepo)

	stockHandler := stock.NewHandler(logger,
		stock.NewService(stock.NewRepository(pool), masterRepo))

	invoicesHandler := invoices.NewHandler(logger,
		invoices.NewService(invoices.NewPoolRepository(pool, businessTZ), auditLogger, businessTZ))

	shipmentsHandler := shipments.NewHandler(logger,
		shipments.NewService(shipments.NewRepository(pool, businessTZ), auditLogger, businessTZ))

	receivablesHandler := receivables.NewHandler(logger,
		receivables.NewService(receivables.NewRepository(pool), auditLogger))

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,

		AuthHandler:        authHandler,
		CustomersHandler:   customersHandler,
		MasterDataHandler:  masterHandler,
		StockHandler:       stockHandler,
		ShipmentsHandler:   shipmentsHandler,
		InvoicesHandler:    invoicesHandler,
		ReceivablesHandler: receivablesHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
