package volunteers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/declaro-app/declaro/internal/platform/db"
)

// Repository defines volunteer data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetVolunteer(ctx context.Context, id int64) (Volunteer, error)
	FindByEmail(ctx context.Context, email string) (Volunteer, error)
	FindByMemberEmail(ctx context.Context, email string) (Volunteer, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	CreateEmployee(ctx context.Context, input CreateEmployeeInput) (int64, error)
	LinkEmployee(ctx context.Context, volunteerID, employeeID int64) error
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

const volunteerColumns = `id, name, email, member_id, employee_id, is_active, created_at`

func scanVolunteer(row pgx.Row) (Volunteer, error) {
	var v Volunteer
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.MemberID, &v.EmployeeID, &v.IsActive, &v.CreatedAt); err != nil {
		return Volunteer{}, err
	}
	return v, nil
}

func (r *pgRepository) GetVolunteer(ctx context.Context, id int64) (Volunteer, error) {
	v, err := scanVolunteer(r.pool.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Volunteer{}, ErrVolunteerNotFound
	}
	return v, err
}

func (r *pgRepository) FindByEmail(ctx context.Context, email string) (Volunteer, error) {
	v, err := scanVolunteer(r.pool.QueryRow(ctx,
		`SELECT `+volunteerColumns+` FROM volunteers WHERE lower(email)=lower($1) AND is_active LIMIT 1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Volunteer{}, ErrVolunteerNotFound
	}
	return v, err
}

func (r *pgRepository) FindByMemberEmail(ctx context.Context, email string) (Volunteer, error) {
	v, err := scanVolunteer(r.pool.QueryRow(ctx,
		`SELECT v.id, v.name, v.email, v.member_id, v.employee_id, v.is_active, v.created_at
FROM volunteers v
JOIN members m ON m.id = v.member_id
WHERE lower(m.email)=lower($1) AND v.is_active
LIMIT 1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Volunteer{}, ErrVolunteerNotFound
	}
	return v, err
}

func (r *pgRepository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	var e Employee
	err := r.pool.QueryRow(ctx,
		`SELECT id, volunteer_id, name, company, designation, created_at FROM employees WHERE id=$1`, id).
		Scan(&e.ID, &e.VolunteerID, &e.Name, &e.Company, &e.Designation, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, err
}

func (t *pgTxRepository) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO employees (volunteer_id, name, company, designation, created_at)
VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		input.VolunteerID, input.Name, input.Company, input.Designation).Scan(&id)
	return id, err
}

func (t *pgTxRepository) LinkEmployee(ctx context.Context, volunteerID, employeeID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE volunteers SET employee_id=$2 WHERE id=$1`, volunteerID, employeeID)
	return err
}
