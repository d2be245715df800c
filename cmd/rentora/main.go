package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rentora-erp/rentora-erp/internal/app"
	"github.com/rentora-erp/rentora-erp/internal/auth"
	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/delivery"
	"github.com/rentora-erp/rentora-erp/internal/observability"
	"github.com/rentora-erp/rentora-erp/internal/platform/cache"
	"github.com/rentora-erp/rentora-erp/internal/platform/db"
	"github.com/rentora-erp/rentora-erp/internal/procurement"
	"github.com/rentora-erp/rentora-erp/internal/projects"
	"github.com/rentora-erp/rentora-erp/internal/returns"
	"github.com/rentora-erp/rentora-erp/internal/shared"
	"github.com/rentora-erp/rentora-erp/internal/vendors"
	"github.com/rentora-erp/rentora-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := authz.EnsurePolicies(ctx, pool); err != nil {
		logger.Error("ensure row security policies", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	checker := authz.NewChecker(authz.NewStore(pool))
	auditLogger := shared.NewAuditLogger(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	auditSink := jobs.NewAuditEnqueuer(jobClient, logger)

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokenStore)
	authHandler := auth.NewHandler(logger, authService)

	projectService := projects.NewService(projects.NewRepository(pool), checker, auditSink)
	procurementService := procurement.NewService(procurement.NewRepository(pool), checker, auditSink)
	projectsHandler := projects.NewHandler(logger, projectService,
		app.OrderSummaryAdapter{Service: procurementService}, auditLogger)
	vendorsHandler := vendors.NewHandler(logger, vendors.NewService(vendors.NewRepository(pool), checker, auditSink))
	procurementHandler := procurement.NewHandler(logger, procurementService)

	deliveryService := delivery.NewService(delivery.NewRepository(pool), procurementService, checker, auditSink)
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	returnsService := returns.NewService(returns.NewRepository(pool), idempotencyStore, checker, auditSink)
	returnsHandler := returns.NewHandler(logger, returnsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthService:        authService,
		AuthHandler:        authHandler,
		ProjectsHandler:    projectsHandler,
		VendorsHandler:     vendorsHandler,
		ProcurementHandler: procurementHandler,
		DeliveryHandler:    deliveryHandler,
		ReturnsHandler:     returnsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
