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

	"github.com/declaro-app/declaro/internal/app"
	"github.com/declaro-app/declaro/internal/auth"
	"github.com/declaro-app/declaro/internal/expenses"
	"github.com/declaro-app/declaro/internal/notifications"
	"github.com/declaro-app/declaro/internal/observability"
	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/platform/cache"
	"github.com/declaro-app/declaro/internal/platform/db"
	"github.com/declaro-app/declaro/internal/reporting"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/users"
	"github.com/declaro-app/declaro/internal/volunteers"
	"github.com/declaro-app/declaro/jobs"
	"github.com/declaro-app/declaro/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "declaro_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)

	volunteerRepo := volunteers.NewRepository(dbpool)
	volunteerService := volunteers.NewService(volunteerRepo, volunteers.ServiceConfig{
		Company: cfg.CompanyName,
	})

	orgRepo := organizations.NewRepository(dbpool)
	orgService := organizations.NewService(orgRepo, organizations.ServiceConfig{
		Company:     cfg.CompanyName,
		CompanyAbbr: cfg.CompanyAbbr,
	})
	orgHandler := organizations.NewHandler(logger, orgService, usersService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	notifier := notifications.NewNotifier(jobClient, logger, nil, cfg.BaseURL, cfg.CompanyName)

	expenseRepo := expenses.NewRepository(dbpool)
	expenseService := expenses.NewService(expenseRepo, volunteerService, orgService, usersService, notifier, approvalRecorder, logger)
	expenseHandler := expenses.NewHandler(logger, expenseService, approvalRecorder)

	reportingRepo := reporting.NewRepository(dbpool)
	reportingService := reporting.NewService(reportingRepo, logger)
	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportingHandler := reporting.NewHandler(logger, reportingService, pdfClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		ExpensesHandler:      expenseHandler,
		OrganizationsHandler: orgHandler,
		ReportingHandler:     reportingHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
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
