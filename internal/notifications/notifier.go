package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/declaro-app/declaro/internal/expenses"
	jobmetrics "github.com/declaro-app/declaro/internal/jobs"
)

// EmailEnqueuer hands rendered emails to the background queue.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Notifier renders expense lifecycle emails and enqueues them for delivery.
type Notifier struct {
	enqueuer    EmailEnqueuer
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
	baseURL     string
	companyName string
}

var _ expenses.Notifier = (*Notifier)(nil)

// NewNotifier constructs a Notifier.
func NewNotifier(enqueuer EmailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics, baseURL, companyName string) *Notifier {
	return &Notifier{
		enqueuer:    enqueuer,
		logger:      logger,
		metrics:     metrics,
		baseURL:     baseURL,
		companyName: companyName,
	}
}

// ExpenseSubmitted notifies every resolved approver about a new submission.
func (n *Notifier) ExpenseSubmitted(ctx context.Context, exp expenses.Expense, volunteerName string, approvers []string) error {
	data := n.emailData(exp, volunteerName)
	subject, body, err := Render(KindApprovalRequest, data)
	if err != nil {
		return err
	}
	var firstErr error
	sent := 0
	for _, to := range approvers {
		if to == "" {
			continue
		}
		if err := n.enqueuer.EnqueueEmail(ctx, to, subject, body); err != nil {
			n.logger.Warn("enqueue approval request", slog.Any("error", err), slog.String("to", to))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	n.metrics.AddEmails(KindApprovalRequest, sent)
	return firstErr
}

// ExpenseApproved notifies the submitter about the approval.
func (n *Notifier) ExpenseApproved(ctx context.Context, exp expenses.Expense, volunteerName, recipient string) error {
	subject, body, err := Render(KindApproved, n.emailData(exp, volunteerName))
	if err != nil {
		return err
	}
	if err := n.enqueuer.EnqueueEmail(ctx, recipient, subject, body); err != nil {
		return err
	}
	n.metrics.AddEmails(KindApproved, 1)
	return nil
}

// ExpenseRejected notifies the submitter about the rejection and its reason.
func (n *Notifier) ExpenseRejected(ctx context.Context, exp expenses.Expense, volunteerName, recipient, reason string) error {
	data := n.emailData(exp, volunteerName)
	data.Reason = reason
	subject, body, err := Render(KindRejected, data)
	if err != nil {
		return err
	}
	if err := n.enqueuer.EnqueueEmail(ctx, recipient, subject, body); err != nil {
		return err
	}
	n.metrics.AddEmails(KindRejected, 1)
	return nil
}

// ExpenseEscalated notifies a higher-level approver list.
func (n *Notifier) ExpenseEscalated(ctx context.Context, exp expenses.Expense, volunteerName string, approvers []string) error {
	subject, body, err := Render(KindEscalated, n.emailData(exp, volunteerName))
	if err != nil {
		return err
	}
	var firstErr error
	sent := 0
	for _, to := range approvers {
		if to == "" {
			continue
		}
		if err := n.enqueuer.EnqueueEmail(ctx, to, subject, body); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	n.metrics.AddEmails(KindEscalated, sent)
	return firstErr
}

// OverdueReminder nudges approvers about an expense that has been pending
// for the given number of days.
func (n *Notifier) OverdueReminder(ctx context.Context, exp expenses.Expense, volunteerName string, approvers []string, daysPending int) error {
	data := n.emailData(exp, volunteerName)
	data.DaysPending = daysPending
	subject, body, err := Render(KindOverdue, data)
	if err != nil {
		return err
	}
	var firstErr error
	sent := 0
	for _, to := range approvers {
		if to == "" {
			continue
		}
		if err := n.enqueuer.EnqueueEmail(ctx, to, subject, body); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	n.metrics.AddEmails(KindOverdue, sent)
	return firstErr
}

func (n *Notifier) emailData(exp expenses.Expense, volunteerName string) EmailData {
	data := EmailData{
		VolunteerName: volunteerName,
		Description:   exp.Description,
		Amount:        exp.Amount,
		ExpenseDate:   exp.ExpenseDate.Format(time.DateOnly),
		Organization:  orgLabel(exp),
		Category:      exp.CategoryName,
		CompanyName:   n.companyName,
	}
	if n.baseURL != "" {
		data.ReviewURL = fmt.Sprintf("%s/expenses/%s", n.baseURL, exp.ID)
	}
	return data
}

func orgLabel(exp expenses.Expense) string {
	switch {
	case exp.ChapterID != nil:
		return fmt.Sprintf("%s %d", exp.OrgType, *exp.ChapterID)
	case exp.TeamID != nil:
		return fmt.Sprintf("%s %d", exp.OrgType, *exp.TeamID)
	default:
		return string(exp.OrgType)
	}
}
