package organizations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines organization data access.
type Repository interface {
	GetChapter(ctx context.Context, id int64) (Chapter, error)
	FindChapterByName(ctx context.Context, name string) (Chapter, error)
	ListChapters(ctx context.Context) ([]Chapter, error)
	ListChaptersForMember(ctx context.Context, memberID int64) ([]Chapter, error)
	CreateChapter(ctx context.Context, input CreateChapterInput) (Chapter, error)

	GetTeam(ctx context.Context, id int64) (Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]Team, error)
	CreateTeam(ctx context.Context, input CreateTeamInput) (Team, error)

	MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error)
	VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error)
	VolunteerLeadsTeam(ctx context.Context, volunteerID, teamID int64) (bool, error)
	VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error)
	ListBoardMembers(ctx context.Context, chapterID int64) ([]BoardMember, error)
	TeamLeadEmails(ctx context.Context, teamID int64) ([]string, error)

	GetCostCenter(ctx context.Context, id int64) (CostCenter, error)
	DefaultCostCenter(ctx context.Context, company string) (CostCenter, error)
	AnyLeafCostCenter(ctx context.Context, company string) (CostCenter, error)
	CreateCostCenter(ctx context.Context, input CreateCostCenterInput) (CostCenter, error)

	GetCategory(ctx context.Context, id int64) (ExpenseCategory, error)
	FindCategoryByName(ctx context.Context, name string) (ExpenseCategory, error)
	CreateCategory(ctx context.Context, name string) (ExpenseCategory, error)
	ListCategories(ctx context.Context) ([]ExpenseCategory, error)

	GetSettings(ctx context.Context) (Settings, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const chapterColumns = `id, name, cost_center_id, published, created_at`

func scanChapter(row pgx.Row) (Chapter, error) {
	var c Chapter
	if err := row.Scan(&c.ID, &c.Name, &c.CostCenterID, &c.Published, &c.CreatedAt); err != nil {
		return Chapter{}, err
	}
	return c, nil
}

func (r *pgRepository) GetChapter(ctx context.Context, id int64) (Chapter, error) {
	c, err := scanChapter(r.pool.QueryRow(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Chapter{}, ErrChapterNotFound
	}
	return c, err
}

func (r *pgRepository) FindChapterByName(ctx context.Context, name string) (Chapter, error) {
	c, err := scanChapter(r.pool.QueryRow(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE lower(name)=lower($1) LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Chapter{}, ErrChapterNotFound
	}
	return c, err
}

func (r *pgRepository) ListChapters(ctx context.Context) ([]Chapter, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+chapterColumns+` FROM chapters ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListChaptersForMember(ctx context.Context, memberID int64) ([]Chapter, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.cost_center_id, c.published, c.created_at
FROM chapters c
JOIN chapter_members cm ON cm.chapter_id = c.id
WHERE cm.member_id=$1 AND cm.enabled
ORDER BY c.name`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetTeam(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, chapter_id, cost_center_id, is_active FROM teams WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.ChapterID, &t.CostCenterID, &t.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, ErrTeamNotFound
	}
	return t, err
}

func (r *pgRepository) ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.chapter_id, t.cost_center_id, t.is_active
FROM teams t
JOIN team_members tm ON tm.team_id = t.id
WHERE tm.volunteer_id=$1 AND tm.is_active AND t.is_active
ORDER BY t.name`, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ChapterID, &t.CostCenterID, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *pgRepository) CreateChapter(ctx context.Context, input CreateChapterInput) (Chapter, error) {
	c := Chapter{Name: input.Name, CostCenterID: input.CostCenterID, Published: input.Published}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO chapters (name, cost_center_id, published, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, created_at`,
		input.Name, input.CostCenterID, input.Published).Scan(&c.ID, &c.CreatedAt)
	return c, err
}

func (r *pgRepository) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, chapter_id, cost_center_id, is_active FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ChapterID, &t.CostCenterID, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *pgRepository) CreateTeam(ctx context.Context, input CreateTeamInput) (Team, error) {
	t := Team{Name: input.Name, ChapterID: input.ChapterID, CostCenterID: input.CostCenterID, IsActive: true}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO teams (name, chapter_id, cost_center_id, is_active)
VALUES ($1, $2, $3, TRUE)
RETURNING id`,
		input.Name, input.ChapterID, input.CostCenterID).Scan(&t.ID)
	return t, err
}

func (r *pgRepository) MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM chapter_members WHERE member_id=$1 AND chapter_id=$2 AND enabled`, memberID, chapterID)
}

func (r *pgRepository) VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM team_members WHERE volunteer_id=$1 AND team_id=$2 AND is_active`, volunteerID, teamID)
}

func (r *pgRepository) VolunteerLeadsTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM team_members WHERE volunteer_id=$1 AND team_id=$2 AND is_active AND role='Team Leader'`,
		volunteerID, teamID)
}

func (r *pgRepository) VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM board_members
WHERE volunteer_id=$1 AND chapter_id=$2 AND is_active
AND (to_date IS NULL OR to_date >= CURRENT_DATE)`, volunteerID, chapterID)
}

func (r *pgRepository) ListBoardMembers(ctx context.Context, chapterID int64) ([]BoardMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT bm.chapter_id, bm.volunteer_id, v.email, bm.role, bm.is_active, bm.from_date, bm.to_date
FROM board_members bm
JOIN volunteers v ON v.id = bm.volunteer_id
WHERE bm.chapter_id=$1 AND bm.is_active
AND (bm.to_date IS NULL OR bm.to_date >= CURRENT_DATE)
ORDER BY bm.role, v.email`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BoardMember
	for rows.Next() {
		var m BoardMember
		if err := rows.Scan(&m.ChapterID, &m.VolunteerID, &m.Email, &m.Role, &m.IsActive, &m.From, &m.To); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgRepository) TeamLeadEmails(ctx context.Context, teamID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.email
FROM team_members tm
JOIN volunteers v ON v.id = tm.volunteer_id
WHERE tm.team_id=$1 AND tm.is_active AND tm.role='Team Leader'
ORDER BY v.email`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

const costCenterColumns = `id, name, company, is_group`

func scanCostCenter(row pgx.Row) (CostCenter, error) {
	var c CostCenter
	if err := row.Scan(&c.ID, &c.Name, &c.Company, &c.IsGroup); err != nil {
		return CostCenter{}, err
	}
	return c, nil
}

func (r *pgRepository) GetCostCenter(ctx context.Context, id int64) (CostCenter, error) {
	c, err := scanCostCenter(r.pool.QueryRow(ctx, `SELECT `+costCenterColumns+` FROM cost_centers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CostCenter{}, ErrCostCenterNotFound
	}
	return c, err
}

func (r *pgRepository) DefaultCostCenter(ctx context.Context, company string) (CostCenter, error) {
	c, err := scanCostCenter(r.pool.QueryRow(ctx,
		`SELECT `+costCenterColumns+` FROM cost_centers WHERE company=$1 AND is_default AND NOT is_group LIMIT 1`, company))
	if errors.Is(err, pgx.ErrNoRows) {
		return CostCenter{}, ErrCostCenterNotFound
	}
	return c, err
}

func (r *pgRepository) AnyLeafCostCenter(ctx context.Context, company string) (CostCenter, error) {
	c, err := scanCostCenter(r.pool.QueryRow(ctx,
		`SELECT `+costCenterColumns+` FROM cost_centers WHERE company=$1 AND NOT is_group ORDER BY id LIMIT 1`, company))
	if errors.Is(err, pgx.ErrNoRows) {
		return CostCenter{}, ErrCostCenterNotFound
	}
	return c, err
}

func (r *pgRepository) CreateCostCenter(ctx context.Context, input CreateCostCenterInput) (CostCenter, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cost_centers (name, company, is_group, is_default)
VALUES ($1, $2, $3, false)
ON CONFLICT (name, company) DO UPDATE SET name=EXCLUDED.name
RETURNING id`, input.Name, input.Company, input.IsGroup).Scan(&id)
	if err != nil {
		return CostCenter{}, err
	}
	return CostCenter{ID: id, Name: input.Name, Company: input.Company, IsGroup: input.IsGroup}, nil
}

const categoryColumns = `id, name, expense_account, policy_covered, disabled`

func scanCategory(row pgx.Row) (ExpenseCategory, error) {
	var c ExpenseCategory
	if err := row.Scan(&c.ID, &c.Name, &c.ExpenseAccount, &c.PolicyCovered, &c.Disabled); err != nil {
		return ExpenseCategory{}, err
	}
	return c, nil
}

func (r *pgRepository) GetCategory(ctx context.Context, id int64) (ExpenseCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM expense_categories WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ExpenseCategory{}, ErrCategoryNotFound
	}
	return c, err
}

func (r *pgRepository) FindCategoryByName(ctx context.Context, name string) (ExpenseCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM expense_categories WHERE lower(name)=lower($1) LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return ExpenseCategory{}, ErrCategoryNotFound
	}
	return c, err
}

func (r *pgRepository) CreateCategory(ctx context.Context, name string) (ExpenseCategory, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expense_categories (name, expense_account, policy_covered, disabled)
VALUES ($1, '', false, false)
ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
RETURNING id`, name).Scan(&id)
	if err != nil {
		return ExpenseCategory{}, err
	}
	return ExpenseCategory{ID: id, Name: name}, nil
}

func (r *pgRepository) ListCategories(ctx context.Context) ([]ExpenseCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM expense_categories WHERE NOT disabled ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx,
		`SELECT national_chapter_id, national_cost_center_id FROM org_settings WHERE id=1`).
		Scan(&s.NationalChapterID, &s.NationalCostCenterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	return s, err
}

func (r *pgRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, query+` LIMIT 1`, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
