package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/declaro-app/declaro/internal/app"
	"github.com/declaro-app/declaro/internal/expenses"
	jobmetrics "github.com/declaro-app/declaro/internal/jobs"
	"github.com/declaro-app/declaro/internal/notifications"
	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/platform/db"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/users"
	"github.com/declaro-app/declaro/internal/volunteers"
	"github.com/declaro-app/declaro/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	mailer := jobs.NewMailer(jobs.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)

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
	notifier := notifications.NewNotifier(jobClient, logger, metrics, cfg.BaseURL, cfg.CompanyName)

	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	volunteerService := volunteers.NewService(volunteers.NewRepository(pool), volunteers.ServiceConfig{
		Company: cfg.CompanyName,
	})
	orgService := organizations.NewService(organizations.NewRepository(pool), organizations.ServiceConfig{
		Company:     cfg.CompanyName,
		CompanyAbbr: cfg.CompanyAbbr,
	})
	usersService := users.NewService(users.NewRepository(pool))
	expenseService := expenses.NewService(expenses.NewRepository(pool), volunteerService, orgService, usersService, notifier, approvalRecorder, logger)

	reminderJob := jobs.NewOverdueReminderJob(expenseService, notifier, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailer.HandleSendEmail},
			{Type: jobs.TaskTypeOverdueScan, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 8 * * *", Task: jobs.NewOverdueScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
