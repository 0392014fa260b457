package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrCostCenterNotFound = errors.New("cost center not found")
	ErrCategoryNotFound   = errors.New("expense category not found")
	ErrNoCostCenter       = errors.New("no cost center could be resolved")
	ErrInvalidScope       = errors.New("invalid organization scope")
)

// policyCoveredKeywords marks category names that national policy covers for
// every volunteer, used when the category itself carries no explicit flag.
var policyCoveredKeywords = []string{"travel", "materials", "office supplies", "events"}

// ServiceConfig carries company defaults used for cost center fallbacks.
type ServiceConfig struct {
	Company     string
	CompanyAbbr string
}

// Service orchestrates organization lookups and eligibility rules.
type Service struct {
	repo Repository
	cfg  ServiceConfig
}

// NewService builds a Service instance.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// GetChapter returns a chapter by ID.
func (s *Service) GetChapter(ctx context.Context, id int64) (Chapter, error) {
	return s.repo.GetChapter(ctx, id)
}

// GetTeam returns a team by ID.
func (s *Service) GetTeam(ctx context.Context, id int64) (Team, error) {
	return s.repo.GetTeam(ctx, id)
}

// ListChapters returns all chapters ordered by name.
func (s *Service) ListChapters(ctx context.Context) ([]Chapter, error) {
	return s.repo.ListChapters(ctx)
}

// ListChaptersForMember returns chapters the member is enabled in.
func (s *Service) ListChaptersForMember(ctx context.Context, memberID int64) ([]Chapter, error) {
	return s.repo.ListChaptersForMember(ctx, memberID)
}

// ListTeamsForVolunteer returns active teams the volunteer serves on.
func (s *Service) ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]Team, error) {
	return s.repo.ListTeamsForVolunteer(ctx, volunteerID)
}

// ListTeams returns all teams ordered by name.
func (s *Service) ListTeams(ctx context.Context) ([]Team, error) {
	return s.repo.ListTeams(ctx)
}

// CreateChapter adds a chapter to the master data.
func (s *Service) CreateChapter(ctx context.Context, input CreateChapterInput) (Chapter, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Chapter{}, fmt.Errorf("%w: chapter name required", ErrInvalidScope)
	}
	if input.CostCenterID != nil {
		if _, err := s.repo.GetCostCenter(ctx, *input.CostCenterID); err != nil {
			return Chapter{}, err
		}
	}
	return s.repo.CreateChapter(ctx, input)
}

// CreateTeam adds a team, optionally attached to a chapter.
func (s *Service) CreateTeam(ctx context.Context, input CreateTeamInput) (Team, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Team{}, fmt.Errorf("%w: team name required", ErrInvalidScope)
	}
	if input.ChapterID != nil {
		if _, err := s.repo.GetChapter(ctx, *input.ChapterID); err != nil {
			return Team{}, err
		}
	}
	return s.repo.CreateTeam(ctx, input)
}

// ListBoardMembers returns the active board of a chapter.
func (s *Service) ListBoardMembers(ctx context.Context, chapterID int64) ([]BoardMember, error) {
	return s.repo.ListBoardMembers(ctx, chapterID)
}

// ListCategories returns the enabled expense categories.
func (s *Service) ListCategories(ctx context.Context) ([]ExpenseCategory, error) {
	return s.repo.ListCategories(ctx)
}

// MemberBelongsToChapter reports whether the member has an enabled membership row.
func (s *Service) MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error) {
	return s.repo.MemberBelongsToChapter(ctx, memberID, chapterID)
}

// VolunteerActiveInTeam reports whether the volunteer is an active team member.
func (s *Service) VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return s.repo.VolunteerActiveInTeam(ctx, volunteerID, teamID)
}

// VolunteerOnChapterBoard reports whether the volunteer holds an active board position.
func (s *Service) VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error) {
	return s.repo.VolunteerOnChapterBoard(ctx, volunteerID, chapterID)
}

// VolunteerOnNationalBoard reports board membership in the national chapter.
func (s *Service) VolunteerOnNationalBoard(ctx context.Context, volunteerID int64) (bool, error) {
	national, err := s.NationalChapter(ctx)
	if err != nil {
		if errors.Is(err, ErrChapterNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.VolunteerOnChapterBoard(ctx, volunteerID, national.ID)
}

// IsPolicyCoveredCategory reports whether national policy covers the category
// for every volunteer. The category flag wins; otherwise the name is matched
// against the known policy keywords.
func (s *Service) IsPolicyCoveredCategory(ctx context.Context, name string) (bool, error) {
	cat, err := s.repo.FindCategoryByName(ctx, name)
	if err == nil && cat.PolicyCovered {
		return true, nil
	}
	if err != nil && !errors.Is(err, ErrCategoryNotFound) {
		return false, err
	}
	lowered := strings.ToLower(name)
	for _, keyword := range policyCoveredKeywords {
		if strings.Contains(lowered, keyword) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCategory returns the category by name, creating it when missing.
func (s *Service) EnsureCategory(ctx context.Context, name string) (ExpenseCategory, error) {
	cat, err := s.repo.FindCategoryByName(ctx, name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, ErrCategoryNotFound) {
		return ExpenseCategory{}, err
	}
	return s.repo.CreateCategory(ctx, name)
}

// NationalChapter resolves the chapter representing the national organization.
// The settings singleton wins; otherwise a chapter literally named "National".
func (s *Service) NationalChapter(ctx context.Context) (Chapter, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return Chapter{}, err
	}
	if settings.NationalChapterID != nil {
		return s.repo.GetChapter(ctx, *settings.NationalChapterID)
	}
	return s.repo.FindChapterByName(ctx, "National")
}

// ResolveCostCenter maps an expense scope to the cost center it books on.
// Organizations without their own cost center fall back to the company default,
// then to any leaf cost center, and finally a dedicated volunteer cost center
// is created.
func (s *Service) ResolveCostCenter(ctx context.Context, scope Scope) (CostCenter, error) {
	switch scope.Type {
	case OrgTypeChapter:
		if scope.ChapterID == nil {
			return CostCenter{}, ErrInvalidScope
		}
		chapter, err := s.repo.GetChapter(ctx, *scope.ChapterID)
		if err != nil {
			return CostCenter{}, err
		}
		if chapter.CostCenterID != nil {
			return s.repo.GetCostCenter(ctx, *chapter.CostCenterID)
		}
	case OrgTypeTeam:
		if scope.TeamID == nil {
			return CostCenter{}, ErrInvalidScope
		}
		team, err := s.repo.GetTeam(ctx, *scope.TeamID)
		if err != nil {
			return CostCenter{}, err
		}
		if team.CostCenterID != nil {
			return s.repo.GetCostCenter(ctx, *team.CostCenterID)
		}
		if team.ChapterID != nil {
			chapter, err := s.repo.GetChapter(ctx, *team.ChapterID)
			if err == nil && chapter.CostCenterID != nil {
				return s.repo.GetCostCenter(ctx, *chapter.CostCenterID)
			}
		}
	case OrgTypeNational:
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return CostCenter{}, err
		}
		if settings.NationalCostCenterID != nil {
			return s.repo.GetCostCenter(ctx, *settings.NationalCostCenterID)
		}
		if national, err := s.NationalChapter(ctx); err == nil && national.CostCenterID != nil {
			return s.repo.GetCostCenter(ctx, *national.CostCenterID)
		}
	default:
		return CostCenter{}, ErrInvalidScope
	}
	return s.fallbackCostCenter(ctx)
}

func (s *Service) fallbackCostCenter(ctx context.Context) (CostCenter, error) {
	if cc, err := s.repo.DefaultCostCenter(ctx, s.cfg.Company); err == nil {
		return cc, nil
	} else if !errors.Is(err, ErrCostCenterNotFound) {
		return CostCenter{}, err
	}
	if cc, err := s.repo.AnyLeafCostCenter(ctx, s.cfg.Company); err == nil {
		return cc, nil
	} else if !errors.Is(err, ErrCostCenterNotFound) {
		return CostCenter{}, err
	}
	name := fmt.Sprintf("Volunteer Expenses - %s", s.cfg.CompanyAbbr)
	cc, err := s.repo.CreateCostCenter(ctx, CreateCostCenterInput{Name: name, Company: s.cfg.Company})
	if err != nil {
		return CostCenter{}, ErrNoCostCenter
	}
	return cc, nil
}

// TeamLeadApprovalLimit is the amount up to which team leaders may approve
// their own team's expenses. Larger amounts go to the chapter board.
const TeamLeadApprovalLimit = 500.0

// ApproverEmailsForAmount resolves approvers for the required approval level.
// Board members qualify when their role grants the level the amount needs.
// Team leaders only handle amounts within their limit, larger team expenses
// go to the parent chapter's board.
func (s *Service) ApproverEmailsForAmount(ctx context.Context, scope Scope, amount float64) ([]string, error) {
	level := LevelForAmount(amount)
	switch scope.Type {
	case OrgTypeChapter:
		if scope.ChapterID == nil {
			return nil, ErrInvalidScope
		}
		return s.boardEmails(ctx, *scope.ChapterID, level)
	case OrgTypeTeam:
		if scope.TeamID == nil {
			return nil, ErrInvalidScope
		}
		if amount <= TeamLeadApprovalLimit {
			leads, err := s.repo.TeamLeadEmails(ctx, *scope.TeamID)
			if err != nil {
				return nil, err
			}
			if len(leads) > 0 {
				return leads, nil
			}
		}
		team, err := s.repo.GetTeam(ctx, *scope.TeamID)
		if err != nil {
			return nil, err
		}
		if team.ChapterID == nil {
			return nil, nil
		}
		return s.boardEmails(ctx, *team.ChapterID, level)
	case OrgTypeNational:
		national, err := s.NationalChapter(ctx)
		if err != nil {
			if errors.Is(err, ErrChapterNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return s.boardEmails(ctx, national.ID, level)
	}
	return nil, ErrInvalidScope
}

// ApproverEmails resolves who may approve an expense in the given scope.
// Chapter and national expenses go to the chapter board, treasurers first.
// Team expenses go to the team leaders, escalating to the chapter board when
// the team has none.
func (s *Service) ApproverEmails(ctx context.Context, scope Scope) ([]string, error) {
	switch scope.Type {
	case OrgTypeChapter:
		if scope.ChapterID == nil {
			return nil, ErrInvalidScope
		}
		return s.boardEmails(ctx, *scope.ChapterID, LevelBasic)
	case OrgTypeTeam:
		if scope.TeamID == nil {
			return nil, ErrInvalidScope
		}
		leads, err := s.repo.TeamLeadEmails(ctx, *scope.TeamID)
		if err != nil {
			return nil, err
		}
		if len(leads) > 0 {
			return leads, nil
		}
		team, err := s.repo.GetTeam(ctx, *scope.TeamID)
		if err != nil {
			return nil, err
		}
		if team.ChapterID == nil {
			return nil, nil
		}
		return s.boardEmails(ctx, *team.ChapterID, LevelBasic)
	case OrgTypeNational:
		national, err := s.NationalChapter(ctx)
		if err != nil {
			if errors.Is(err, ErrChapterNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return s.boardEmails(ctx, national.ID, LevelBasic)
	}
	return nil, ErrInvalidScope
}

// boardEmails returns the board members whose role grants the required level,
// treasurers first. When no role on the board reaches the level, the whole
// board is returned so expenses never strand without an approver.
func (s *Service) boardEmails(ctx context.Context, chapterID int64, level string) ([]string, error) {
	members, err := s.repo.ListBoardMembers(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	required := levelRank(level)
	var treasurers, qualified, all []string
	for _, m := range members {
		if m.Email == "" {
			continue
		}
		all = append(all, m.Email)
		if levelRank(RoleApprovalLevel(m.Role)) < required {
			continue
		}
		if strings.EqualFold(m.Role, "Treasurer") {
			treasurers = append(treasurers, m.Email)
			continue
		}
		qualified = append(qualified, m.Email)
	}
	if len(treasurers) > 0 {
		return treasurers, nil
	}
	if len(qualified) > 0 {
		return qualified, nil
	}
	return all, nil
}
