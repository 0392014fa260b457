package reporting

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/declaro-app/declaro/internal/expenses"
)

// reportRecord is the raw row shape coming back from the database.
type reportRecord struct {
	Row       Row
	Status    expenses.Status
	CreatedAt time.Time
}

// Repository provides read access to the report dataset.
type Repository interface {
	Records(ctx context.Context, filter Filter) ([]reportRecord, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed report repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// Records reads from the accounting claims and best-effort joins the tracking
// record, so claims whose tracking insert failed still show up in the report.
func (r *pgRepository) Records(ctx context.Context, filter Filter) ([]reportRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT cl.id, ve.id, v.name,
	COALESCE(c.name, t.name, CASE WHEN ve.id IS NULL THEN '' ELSE 'National' END),
	COALESCE(cat.name, ''), cl.description, cl.amount, cl.expense_date,
	ve.status, cl.doc_status, cl.approval_status, cl.is_paid, cl.created_at
FROM expense_claims cl
JOIN employees emp ON emp.id = cl.employee_id
JOIN volunteers v ON v.id = emp.volunteer_id
LEFT JOIN volunteer_expenses ve ON ve.claim_id = cl.id
LEFT JOIN chapters c ON c.id = ve.chapter_id
LEFT JOIN teams t ON t.id = ve.team_id
LEFT JOIN expense_categories cat ON cat.id = cl.category_id
WHERE 1=1`)

	args := make([]any, 0, 4)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if !filter.DateFrom.IsZero() {
		sb.WriteString(" AND cl.expense_date >= " + arg(filter.DateFrom))
	}
	if !filter.DateTo.IsZero() {
		sb.WriteString(" AND cl.expense_date <= " + arg(filter.DateTo))
	}
	if filter.ChapterID != nil {
		sb.WriteString(" AND ve.chapter_id = " + arg(*filter.ChapterID))
	}
	if filter.OrgType != "" {
		sb.WriteString(" AND ve.org_type = " + arg(filter.OrgType))
	}
	sb.WriteString(" ORDER BY cl.expense_date DESC, cl.created_at DESC")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []reportRecord
	for rows.Next() {
		var (
			rec            reportRecord
			claimID        uuid.UUID
			trackingID     uuid.NullUUID
			trackingStatus *string
			docStatus      string
			approval       string
			isPaid         bool
		)
		if err := rows.Scan(&claimID, &trackingID, &rec.Row.VolunteerName, &rec.Row.Organization,
			&rec.Row.Category, &rec.Row.Description, &rec.Row.Amount, &rec.Row.ExpenseDate,
			&trackingStatus, &docStatus, &approval, &isPaid, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Row.ExpenseID = claimID
		if trackingID.Valid {
			rec.Row.ExpenseID = trackingID.UUID
		}
		rec.Status = recordStatus(trackingStatus, docStatus, approval, isPaid)
		if filter.Status != "" && rec.Status != expenses.Status(filter.Status) {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// recordStatus prefers the tracking record's status and falls back to the
// claim's own state for claims that never got a tracking record.
func recordStatus(trackingStatus *string, docStatus, approval string, isPaid bool) expenses.Status {
	if trackingStatus != nil && *trackingStatus != "" {
		return expenses.Status(*trackingStatus)
	}
	return expenses.MapClaimStatus(expenses.ClaimDocStatus(docStatus),
		expenses.ClaimApprovalStatus(approval), isPaid)
}
