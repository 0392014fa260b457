package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalSubmit marks a submit action.
	ApprovalSubmit ApprovalAction = "SUBMIT"
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReject marks a reject action.
	ApprovalReject ApprovalAction = "REJECT"
	// ApprovalReimburse marks a reimbursement action.
	ApprovalReimburse ApprovalAction = "REIMBURSE"
	// ApprovalEscalate marks an escalation to the next approver level.
	ApprovalEscalate ApprovalAction = "ESCALATE"
)

// ApprovalLog represents a single approval record.
type ApprovalLog struct {
	ID         int64
	ExpenseID  uuid.UUID
	ActorEmail string
	Action     ApprovalAction
	Note       string
	At         time.Time
}

// ApprovalRecorder persists approval history for expenses.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record writes an approval entry to the database.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if log.ActorEmail == "" {
		return errors.New("approval actor required")
	}
	if log.ExpenseID == uuid.Nil {
		return errors.New("approval expense id required")
	}
	if log.Action == "" {
		return errors.New("approval action required")
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO expense_approval_logs (expense_id, actor_email, action, note, at)
VALUES ($1, $2, $3, $4, $5)`,
		log.ExpenseID, log.ActorEmail, string(log.Action), log.Note, log.At)
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the approval trail for an expense in chronological order.
func (r *ApprovalRecorder) List(ctx context.Context, expenseID uuid.UUID) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, expense_id, actor_email, action, note, at
FROM expense_approval_logs WHERE expense_id=$1 ORDER BY at ASC`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.ExpenseID, &l.ActorEmail, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureSubmit ensures a submit record exists for the expense else creates one.
func (r *ApprovalRecorder) EnsureSubmit(ctx context.Context, expenseID uuid.UUID, actorEmail, note string) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT true FROM expense_approval_logs WHERE expense_id=$1 AND action='SUBMIT' LIMIT 1`, expenseID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.Record(ctx, ApprovalLog{ExpenseID: expenseID, ActorEmail: actorEmail, Action: ApprovalSubmit, Note: note})
		}
		return err
	}
	return nil
}
