package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/declaro-app/declaro/internal/expenses"
	jobmetrics "github.com/declaro-app/declaro/internal/jobs"
	"github.com/declaro-app/declaro/internal/notifications"
)

// OverduePendingAfter is how long a submitted expense may wait before
// approvers get a reminder.
const OverduePendingAfter = 7 * 24 * time.Hour

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReminderSender delivers the rendered reminder for one pending expense.
type ReminderSender interface {
	OverdueReminder(ctx context.Context, exp expenses.Expense, volunteerName string, approvers []string, daysPending int) error
}

var _ ReminderSender = (*notifications.Notifier)(nil)

// OverdueReminderJob nudges approvers about expenses stuck in review.
type OverdueReminderJob struct {
	Expenses *expenses.Service
	Sender   ReminderSender
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueReminderJob initialises the reminder scan handler.
func NewOverdueReminderJob(svc *expenses.Service, sender ReminderSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueReminderJob {
	return &OverdueReminderJob{
		Expenses: svc,
		Sender:   sender,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reminder scan.
func (j *OverdueReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Expenses == nil {
		return errors.New("overdue scan: handler not configured")
	}

	tracker := j.metrics().Track(TaskTypeOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting overdue reminder scan")

	reminders, err := j.Expenses.PendingReminders(ctx, OverduePendingAfter)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	sent := 0
	for _, reminder := range reminders {
		if j.Sender == nil {
			break
		}
		if err := j.Sender.OverdueReminder(ctx, reminder.Expense, reminder.VolunteerName, reminder.Approvers, reminder.DaysPending); err != nil {
			logger.Warn("send reminder",
				slog.Any("error", err),
				slog.String("expense_id", reminder.Expense.ID.String()),
			)
			continue
		}
		sent++
	}

	logger.Info("completed overdue reminder scan",
		slog.Int("pending", len(reminders)),
		slog.Int("reminded", sent),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverdueReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskTypeOverdueScan))
}

func (j *OverdueReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueReminderJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
