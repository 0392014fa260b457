package organizations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryOrgRepo struct {
	chapters     map[int64]Chapter
	teams        map[int64]Team
	boards       map[int64][]BoardMember
	teamLeads    map[int64][]string
	memberships  map[[2]int64]bool // member, chapter
	teamMembers  map[[2]int64]bool // volunteer, team
	costCenters  map[int64]CostCenter
	categories   map[string]ExpenseCategory
	settings     Settings
	defaultCC    *CostCenter
	nextID       int64
	createdCCs   []string
	createdCats  []string
}

func newMemoryOrgRepo() *memoryOrgRepo {
	return &memoryOrgRepo{
		chapters:    make(map[int64]Chapter),
		teams:       make(map[int64]Team),
		boards:      make(map[int64][]BoardMember),
		teamLeads:   make(map[int64][]string),
		memberships: make(map[[2]int64]bool),
		teamMembers: make(map[[2]int64]bool),
		costCenters: make(map[int64]CostCenter),
		categories:  make(map[string]ExpenseCategory),
		nextID:      100,
	}
}

func (r *memoryOrgRepo) GetChapter(ctx context.Context, id int64) (Chapter, error) {
	c, ok := r.chapters[id]
	if !ok {
		return Chapter{}, ErrChapterNotFound
	}
	return c, nil
}

func (r *memoryOrgRepo) FindChapterByName(ctx context.Context, name string) (Chapter, error) {
	for _, c := range r.chapters {
		if c.Name == name {
			return c, nil
		}
	}
	return Chapter{}, ErrChapterNotFound
}

func (r *memoryOrgRepo) ListChapters(ctx context.Context) ([]Chapter, error) {
	var out []Chapter
	for _, c := range r.chapters {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryOrgRepo) ListChaptersForMember(ctx context.Context, memberID int64) ([]Chapter, error) {
	var out []Chapter
	for id, c := range r.chapters {
		if r.memberships[[2]int64{memberID, id}] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) GetTeam(ctx context.Context, id int64) (Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return Team{}, ErrTeamNotFound
	}
	return t, nil
}

func (r *memoryOrgRepo) ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]Team, error) {
	var out []Team
	for id, t := range r.teams {
		if r.teamMembers[[2]int64{volunteerID, id}] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) ListTeams(ctx context.Context) ([]Team, error) {
	var out []Team
	for _, t := range r.teams {
		out = append(out, t)
	}
	return out, nil
}

func (r *memoryOrgRepo) CreateChapter(ctx context.Context, input CreateChapterInput) (Chapter, error) {
	r.nextID++
	c := Chapter{ID: r.nextID, Name: input.Name, CostCenterID: input.CostCenterID, Published: input.Published}
	r.chapters[c.ID] = c
	return c, nil
}

func (r *memoryOrgRepo) CreateTeam(ctx context.Context, input CreateTeamInput) (Team, error) {
	r.nextID++
	t := Team{ID: r.nextID, Name: input.Name, ChapterID: input.ChapterID, CostCenterID: input.CostCenterID, IsActive: true}
	r.teams[t.ID] = t
	return t, nil
}

func (r *memoryOrgRepo) MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error) {
	return r.memberships[[2]int64{memberID, chapterID}], nil
}

func (r *memoryOrgRepo) VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return r.teamMembers[[2]int64{volunteerID, teamID}], nil
}

func (r *memoryOrgRepo) VolunteerLeadsTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return false, nil
}

func (r *memoryOrgRepo) VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error) {
	for _, m := range r.boards[chapterID] {
		if m.VolunteerID == volunteerID && m.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryOrgRepo) ListBoardMembers(ctx context.Context, chapterID int64) ([]BoardMember, error) {
	return r.boards[chapterID], nil
}

func (r *memoryOrgRepo) TeamLeadEmails(ctx context.Context, teamID int64) ([]string, error) {
	return r.teamLeads[teamID], nil
}

func (r *memoryOrgRepo) GetCostCenter(ctx context.Context, id int64) (CostCenter, error) {
	c, ok := r.costCenters[id]
	if !ok {
		return CostCenter{}, ErrCostCenterNotFound
	}
	return c, nil
}

func (r *memoryOrgRepo) DefaultCostCenter(ctx context.Context, company string) (CostCenter, error) {
	if r.defaultCC != nil {
		return *r.defaultCC, nil
	}
	return CostCenter{}, ErrCostCenterNotFound
}

func (r *memoryOrgRepo) AnyLeafCostCenter(ctx context.Context, company string) (CostCenter, error) {
	for _, c := range r.costCenters {
		if !c.IsGroup {
			return c, nil
		}
	}
	return CostCenter{}, ErrCostCenterNotFound
}

func (r *memoryOrgRepo) CreateCostCenter(ctx context.Context, input CreateCostCenterInput) (CostCenter, error) {
	r.nextID++
	cc := CostCenter{ID: r.nextID, Name: input.Name, Company: input.Company, IsGroup: input.IsGroup}
	r.costCenters[cc.ID] = cc
	r.createdCCs = append(r.createdCCs, input.Name)
	return cc, nil
}

func (r *memoryOrgRepo) GetCategory(ctx context.Context, id int64) (ExpenseCategory, error) {
	for _, c := range r.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return ExpenseCategory{}, ErrCategoryNotFound
}

func (r *memoryOrgRepo) FindCategoryByName(ctx context.Context, name string) (ExpenseCategory, error) {
	c, ok := r.categories[name]
	if !ok {
		return ExpenseCategory{}, ErrCategoryNotFound
	}
	return c, nil
}

func (r *memoryOrgRepo) CreateCategory(ctx context.Context, name string) (ExpenseCategory, error) {
	r.nextID++
	c := ExpenseCategory{ID: r.nextID, Name: name}
	r.categories[name] = c
	r.createdCats = append(r.createdCats, name)
	return c, nil
}

func (r *memoryOrgRepo) ListCategories(ctx context.Context) ([]ExpenseCategory, error) {
	var out []ExpenseCategory
	for _, c := range r.categories {
		if !c.Disabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) GetSettings(ctx context.Context) (Settings, error) {
	return r.settings, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestResolveCostCenterChapterOwn(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.costCenters[7] = CostCenter{ID: 7, Name: "Amsterdam", Company: "Vereniging"}
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam", CostCenterID: int64Ptr(7)}

	svc := NewService(repo, ServiceConfig{Company: "Vereniging", CompanyAbbr: "VER"})

	cc, err := svc.ResolveCostCenter(context.Background(), Scope{Type: OrgTypeChapter, ChapterID: int64Ptr(1)})
	require.NoError(t, err)
	require.Equal(t, int64(7), cc.ID)
}

func TestResolveCostCenterTeamFallsBackToChapter(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.costCenters[7] = CostCenter{ID: 7, Name: "Amsterdam", Company: "Vereniging"}
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam", CostCenterID: int64Ptr(7)}
	repo.teams[2] = Team{ID: 2, Name: "Events", ChapterID: int64Ptr(1), IsActive: true}

	svc := NewService(repo, ServiceConfig{Company: "Vereniging", CompanyAbbr: "VER"})

	cc, err := svc.ResolveCostCenter(context.Background(), Scope{Type: OrgTypeTeam, TeamID: int64Ptr(2)})
	require.NoError(t, err)
	require.Equal(t, int64(7), cc.ID)
}

func TestResolveCostCenterCreatesFallback(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Utrecht"}

	svc := NewService(repo, ServiceConfig{Company: "Vereniging", CompanyAbbr: "VER"})

	cc, err := svc.ResolveCostCenter(context.Background(), Scope{Type: OrgTypeChapter, ChapterID: int64Ptr(1)})
	require.NoError(t, err)
	require.Equal(t, "Volunteer Expenses - VER", cc.Name)
	require.False(t, cc.IsGroup)
	require.Equal(t, []string{"Volunteer Expenses - VER"}, repo.createdCCs)
}

func TestResolveCostCenterNationalUsesSettings(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.costCenters[9] = CostCenter{ID: 9, Name: "National", Company: "Vereniging"}
	repo.settings = Settings{NationalCostCenterID: int64Ptr(9)}

	svc := NewService(repo, ServiceConfig{Company: "Vereniging", CompanyAbbr: "VER"})

	cc, err := svc.ResolveCostCenter(context.Background(), Scope{Type: OrgTypeNational})
	require.NoError(t, err)
	require.Equal(t, int64(9), cc.ID)
}

func TestIsPolicyCoveredCategory(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.categories["Insurance"] = ExpenseCategory{ID: 1, Name: "Insurance", PolicyCovered: true}
	repo.categories["Legal"] = ExpenseCategory{ID: 2, Name: "Legal"}

	svc := NewService(repo, ServiceConfig{})

	covered, err := svc.IsPolicyCoveredCategory(context.Background(), "Insurance")
	require.NoError(t, err)
	require.True(t, covered)

	covered, err = svc.IsPolicyCoveredCategory(context.Background(), "Travel Reimbursement")
	require.NoError(t, err)
	require.True(t, covered, "name keyword match")

	covered, err = svc.IsPolicyCoveredCategory(context.Background(), "Legal")
	require.NoError(t, err)
	require.False(t, covered)
}

func TestEnsureCategoryIdempotent(t *testing.T) {
	repo := newMemoryOrgRepo()
	svc := NewService(repo, ServiceConfig{})

	first, err := svc.EnsureCategory(context.Background(), "Travel")
	require.NoError(t, err)
	second, err := svc.EnsureCategory(context.Background(), "Travel")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.createdCats, 1)
}

func TestApproverEmailsTreasurerFirst(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam"}
	repo.boards[1] = []BoardMember{
		{ChapterID: 1, VolunteerID: 10, Email: "chair@example.org", Role: "Chair", IsActive: true},
		{ChapterID: 1, VolunteerID: 11, Email: "treasurer@example.org", Role: "Treasurer", IsActive: true},
	}

	svc := NewService(repo, ServiceConfig{})

	emails, err := svc.ApproverEmails(context.Background(), Scope{Type: OrgTypeChapter, ChapterID: int64Ptr(1)})
	require.NoError(t, err)
	require.Equal(t, []string{"treasurer@example.org"}, emails)
}

func TestApproverEmailsTeamEscalatesToBoard(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam"}
	repo.boards[1] = []BoardMember{
		{ChapterID: 1, VolunteerID: 10, Email: "chair@example.org", Role: "Chair", IsActive: true},
	}
	repo.teams[2] = Team{ID: 2, Name: "Events", ChapterID: int64Ptr(1), IsActive: true}

	svc := NewService(repo, ServiceConfig{})

	emails, err := svc.ApproverEmails(context.Background(), Scope{Type: OrgTypeTeam, TeamID: int64Ptr(2)})
	require.NoError(t, err)
	require.Equal(t, []string{"chair@example.org"}, emails)

	repo.teamLeads[2] = []string{"lead@example.org"}
	emails, err = svc.ApproverEmails(context.Background(), Scope{Type: OrgTypeTeam, TeamID: int64Ptr(2)})
	require.NoError(t, err)
	require.Equal(t, []string{"lead@example.org"}, emails)
}

func TestNationalChapterFallsBackToName(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[3] = Chapter{ID: 3, Name: "National"}

	svc := NewService(repo, ServiceConfig{})

	national, err := svc.NationalChapter(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), national.ID)
}

func TestCreateChapterValidatesCostCenter(t *testing.T) {
	repo := newMemoryOrgRepo()
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.CreateChapter(context.Background(), CreateChapterInput{Name: "  "})
	require.ErrorIs(t, err, ErrInvalidScope)

	_, err = svc.CreateChapter(context.Background(), CreateChapterInput{Name: "Groningen", CostCenterID: int64Ptr(99)})
	require.ErrorIs(t, err, ErrCostCenterNotFound)

	repo.costCenters[5] = CostCenter{ID: 5, Name: "Groningen - VER", Company: "Vereniging"}
	chapter, err := svc.CreateChapter(context.Background(), CreateChapterInput{Name: "Groningen", CostCenterID: int64Ptr(5), Published: true})
	require.NoError(t, err)
	require.NotZero(t, chapter.ID)
	require.True(t, chapter.Published)
}

func TestCreateTeamRequiresExistingChapter(t *testing.T) {
	repo := newMemoryOrgRepo()
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Events", ChapterID: int64Ptr(42)})
	require.ErrorIs(t, err, ErrChapterNotFound)

	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam"}
	team, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Events", ChapterID: int64Ptr(1)})
	require.NoError(t, err)
	require.True(t, team.IsActive)
	require.Equal(t, int64(1), *team.ChapterID)
}

func TestApproverEmailsForAmountEscalatesLargeTeamExpense(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam"}
	repo.boards[1] = []BoardMember{
		{ChapterID: 1, VolunteerID: 10, Email: "treasurer@example.org", Role: "Treasurer", IsActive: true},
		{ChapterID: 1, VolunteerID: 11, Email: "chair@example.org", Role: "Chair", IsActive: true},
	}
	repo.teams[2] = Team{ID: 2, Name: "Events", ChapterID: int64Ptr(1), IsActive: true}
	repo.teamLeads[2] = []string{"lead@example.org"}

	svc := NewService(repo, ServiceConfig{})
	scope := Scope{Type: OrgTypeTeam, TeamID: int64Ptr(2)}

	emails, err := svc.ApproverEmailsForAmount(context.Background(), scope, 120)
	require.NoError(t, err)
	require.Equal(t, []string{"lead@example.org"}, emails)

	// Above the team lead limit the amount needs admin-level board approval,
	// which the treasurer role does not grant.
	emails, err = svc.ApproverEmailsForAmount(context.Background(), scope, 750)
	require.NoError(t, err)
	require.Equal(t, []string{"chair@example.org"}, emails)
}

func TestApproverEmailsForAmountChapterLevels(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Amsterdam"}
	repo.boards[1] = []BoardMember{
		{ChapterID: 1, VolunteerID: 10, Email: "secretary@example.org", Role: "Secretary", IsActive: true},
		{ChapterID: 1, VolunteerID: 11, Email: "treasurer@example.org", Role: "Treasurer", IsActive: true},
		{ChapterID: 1, VolunteerID: 12, Email: "chair@example.org", Role: "Chair", IsActive: true},
	}

	svc := NewService(repo, ServiceConfig{})
	scope := Scope{Type: OrgTypeChapter, ChapterID: int64Ptr(1)}

	emails, err := svc.ApproverEmailsForAmount(context.Background(), scope, 50)
	require.NoError(t, err)
	require.Equal(t, []string{"treasurer@example.org"}, emails)

	emails, err = svc.ApproverEmailsForAmount(context.Background(), scope, 300)
	require.NoError(t, err)
	require.Equal(t, []string{"treasurer@example.org"}, emails)

	emails, err = svc.ApproverEmailsForAmount(context.Background(), scope, 800)
	require.NoError(t, err)
	require.Equal(t, []string{"chair@example.org"}, emails)
}

func TestRoleApprovalLevel(t *testing.T) {
	require.Equal(t, LevelAdmin, RoleApprovalLevel("Chair"))
	require.Equal(t, LevelAdmin, RoleApprovalLevel("Chapter Head"))
	require.Equal(t, LevelFinancial, RoleApprovalLevel("Treasurer"))
	require.Equal(t, LevelFinancial, RoleApprovalLevel("Financial Officer"))
	require.Equal(t, LevelBasic, RoleApprovalLevel("Secretary"))
}

func TestBoardEmailsFallBackWhenNoRoleReachesLevel(t *testing.T) {
	repo := newMemoryOrgRepo()
	repo.chapters[1] = Chapter{ID: 1, Name: "Utrecht"}
	repo.boards[1] = []BoardMember{
		{ChapterID: 1, VolunteerID: 10, Email: "secretary@example.org", Role: "Secretary", IsActive: true},
	}

	svc := NewService(repo, ServiceConfig{})
	scope := Scope{Type: OrgTypeChapter, ChapterID: int64Ptr(1)}

	emails, err := svc.ApproverEmailsForAmount(context.Background(), scope, 800)
	require.NoError(t, err)
	require.Equal(t, []string{"secretary@example.org"}, emails)
}
