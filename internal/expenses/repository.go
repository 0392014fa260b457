package expenses

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/platform/db"
)

// Repository defines expense data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	CreateClaim(ctx context.Context, input CreateClaimInput) (ExpenseClaim, error)
	CreateExpense(ctx context.Context, input CreateExpenseInput) (Expense, error)
	AddAttachment(ctx context.Context, expenseID uuid.UUID, receipt Receipt) error

	GetExpense(ctx context.Context, id uuid.UUID) (Expense, error)
	FindByClaim(ctx context.Context, claimID uuid.UUID) (Expense, error)
	GetClaim(ctx context.Context, id uuid.UUID) (ExpenseClaim, error)
	List(ctx context.Context, filter ListFilter) ([]Expense, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]Expense, error)
	Statistics(ctx context.Context, volunteerID int64, since time.Time) (Statistics, error)
}

// TxRepository defines state transitions executed within a transaction.
type TxRepository interface {
	UpdateExpenseStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetClaimApproval(ctx context.Context, claimID uuid.UUID, approval ClaimApprovalStatus, approver string) error
	MarkClaimPaid(ctx context.Context, claimID uuid.UUID) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

type pgTxRepository struct {
	tx pgx.Tx
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

func (r *pgRepository) CreateClaim(ctx context.Context, input CreateClaimInput) (ExpenseClaim, error) {
	claim := ExpenseClaim{
		ID:             uuid.New(),
		EmployeeID:     input.EmployeeID,
		CostCenterID:   input.CostCenterID,
		CategoryID:     input.CategoryID,
		Description:    input.Description,
		Amount:         input.Amount,
		ExpenseDate:    input.ExpenseDate,
		DocStatus:      ClaimDocDraft,
		ApprovalStatus: ClaimApprovalDraft,
		ApproverEmail:  input.ApproverEmail,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expense_claims (id, employee_id, cost_center_id, category_id, description, amount, expense_date, doc_status, approval_status, is_paid, approver_email, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, NOW())
RETURNING created_at`,
		claim.ID, claim.EmployeeID, claim.CostCenterID, claim.CategoryID, claim.Description,
		claim.Amount, claim.ExpenseDate, string(claim.DocStatus), string(claim.ApprovalStatus), claim.ApproverEmail).
		Scan(&claim.CreatedAt)
	if err != nil {
		return ExpenseClaim{}, err
	}
	return claim, nil
}

func (r *pgRepository) CreateExpense(ctx context.Context, input CreateExpenseInput) (Expense, error) {
	exp := Expense{
		ID:          uuid.New(),
		VolunteerID: input.VolunteerID,
		ClaimID:     input.ClaimID,
		OrgType:     input.OrgType,
		ChapterID:   input.ChapterID,
		TeamID:      input.TeamID,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Amount:      input.Amount,
		Currency:    "EUR",
		ExpenseDate: input.ExpenseDate,
		Status:      StatusSubmitted,
		Notes:       input.Notes,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO volunteer_expenses (id, volunteer_id, claim_id, org_type, chapter_id, team_id, category_id, description, amount, currency, expense_date, status, notes, attachment_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, NOW())
RETURNING created_at`,
		exp.ID, exp.VolunteerID, exp.ClaimID, string(exp.OrgType), exp.ChapterID, exp.TeamID,
		exp.CategoryID, exp.Description, exp.Amount, exp.Currency, exp.ExpenseDate, string(exp.Status), exp.Notes).
		Scan(&exp.CreatedAt)
	if err != nil {
		return Expense{}, err
	}
	return exp, nil
}

func (r *pgRepository) AddAttachment(ctx context.Context, expenseID uuid.UUID, receipt Receipt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx,
		`INSERT INTO expense_attachments (expense_id, file_name, content, created_at) VALUES ($1, $2, $3, NOW())`,
		expenseID, receipt.FileName, receipt.Content); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE volunteer_expenses SET attachment_count = attachment_count + 1 WHERE id=$1`, expenseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const expenseColumns = `e.id, e.volunteer_id, e.claim_id, e.org_type, e.chapter_id, e.team_id,
e.category_id, c.name, e.description, e.amount, e.currency, e.expense_date, e.status, e.notes,
e.attachment_count, e.created_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var orgType, status string
	if err := row.Scan(&e.ID, &e.VolunteerID, &e.ClaimID, &orgType, &e.ChapterID, &e.TeamID,
		&e.CategoryID, &e.CategoryName, &e.Description, &e.Amount, &e.Currency, &e.ExpenseDate,
		&status, &e.Notes, &e.AttachmentCount, &e.CreatedAt); err != nil {
		return Expense{}, err
	}
	e.OrgType = organizations.OrgType(orgType)
	e.Status = Status(status)
	return e, nil
}

func (r *pgRepository) GetExpense(ctx context.Context, id uuid.UUID) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+`
FROM volunteer_expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrExpenseNotFound
	}
	return e, err
}

func (r *pgRepository) FindByClaim(ctx context.Context, claimID uuid.UUID) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+`
FROM volunteer_expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.claim_id=$1`, claimID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrExpenseNotFound
	}
	return e, err
}

func (r *pgRepository) GetClaim(ctx context.Context, id uuid.UUID) (ExpenseClaim, error) {
	var c ExpenseClaim
	var doc, approval string
	err := r.pool.QueryRow(ctx,
		`SELECT id, employee_id, cost_center_id, category_id, description, amount, expense_date, doc_status, approval_status, is_paid, approver_email, created_at
FROM expense_claims WHERE id=$1`, id).
		Scan(&c.ID, &c.EmployeeID, &c.CostCenterID, &c.CategoryID, &c.Description, &c.Amount,
			&c.ExpenseDate, &doc, &approval, &c.IsPaid, &c.ApproverEmail, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExpenseClaim{}, ErrClaimNotFound
	}
	if err != nil {
		return ExpenseClaim{}, err
	}
	c.DocStatus = ClaimDocStatus(doc)
	c.ApprovalStatus = ClaimApprovalStatus(approval)
	return c, nil
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + `
FROM volunteer_expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.volunteer_id=$1`
	args := []any{filter.VolunteerID}
	if filter.Status != "" {
		query += ` AND e.status=$2`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY e.expense_date DESC, e.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseColumns+`
FROM volunteer_expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.status=$1 AND e.created_at <= $2
ORDER BY e.created_at ASC`, string(StatusSubmitted), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgRepository) Statistics(ctx context.Context, volunteerID int64, since time.Time) (Statistics, error) {
	var s Statistics
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0),
	COALESCE(SUM(amount) FILTER (WHERE status IN ('Approved', 'Reimbursed')), 0),
	COALESCE(SUM(amount) FILTER (WHERE status = 'Submitted'), 0),
	COUNT(*),
	COUNT(*) FILTER (WHERE status IN ('Approved', 'Reimbursed')),
	COUNT(*) FILTER (WHERE status = 'Submitted')
FROM volunteer_expenses
WHERE volunteer_id=$1 AND expense_date >= $2`, volunteerID, since).
		Scan(&s.TotalAmount, &s.ApprovedAmount, &s.PendingAmount, &s.TotalCount, &s.ApprovedCount, &s.PendingCount)
	return s, err
}

func (t *pgTxRepository) UpdateExpenseStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE volunteer_expenses SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (t *pgTxRepository) SetClaimApproval(ctx context.Context, claimID uuid.UUID, approval ClaimApprovalStatus, approver string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE expense_claims SET doc_status=$2, approval_status=$3, approver_email=$4 WHERE id=$1`,
		claimID, string(ClaimDocSubmitted), string(approval), approver)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (t *pgTxRepository) MarkClaimPaid(ctx context.Context, claimID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `UPDATE expense_claims SET is_paid=true WHERE id=$1`, claimID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}
