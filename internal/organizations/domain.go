package organizations

import (
	"strings"
	"time"
)

// Approval levels an expense amount can require, in ascending order.
const (
	LevelBasic     = "Basic"
	LevelFinancial = "Financial"
	LevelAdmin     = "Admin"
)

// LevelForAmount maps an amount to the approval level it requires.
func LevelForAmount(amount float64) string {
	switch {
	case amount <= 100:
		return LevelBasic
	case amount <= 500:
		return LevelFinancial
	default:
		return LevelAdmin
	}
}

func levelRank(level string) int {
	switch level {
	case LevelAdmin:
		return 2
	case LevelFinancial:
		return 1
	default:
		return 0
	}
}

// RoleApprovalLevel maps a board role to the highest level it may approve.
// Chairs carry admin rights, treasurers and financial officers carry
// financial rights, every other board role approves basic amounts only.
func RoleApprovalLevel(role string) string {
	r := strings.ToLower(role)
	switch {
	case strings.Contains(r, "chair"), strings.Contains(r, "head"), strings.Contains(r, "voorzitter"):
		return LevelAdmin
	case strings.Contains(r, "treasurer"), strings.Contains(r, "financial"), strings.Contains(r, "penningmeester"):
		return LevelFinancial
	default:
		return LevelBasic
	}
}

// OrgType enumerates the scopes an expense can be booked against.
type OrgType string

const (
	OrgTypeChapter  OrgType = "Chapter"
	OrgTypeTeam     OrgType = "Team"
	OrgTypeNational OrgType = "National"
)

// Valid reports whether the org type is one of the known scopes.
func (t OrgType) Valid() bool {
	switch t {
	case OrgTypeChapter, OrgTypeTeam, OrgTypeNational:
		return true
	}
	return false
}

// Scope identifies the concrete organization an expense belongs to.
type Scope struct {
	Type      OrgType
	ChapterID *int64
	TeamID    *int64
}

// Chapter is a regional division of the association.
type Chapter struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CostCenterID *int64    `json:"cost_center_id,omitempty"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"`
}

// Team is a working group, optionally attached to a chapter.
type Team struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ChapterID    *int64 `json:"chapter_id,omitempty"`
	CostCenterID *int64 `json:"cost_center_id,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// BoardMember is an active board position within a chapter.
type BoardMember struct {
	ChapterID   int64      `json:"chapter_id"`
	VolunteerID int64      `json:"volunteer_id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
}

// CostCenter mirrors the accounting dimension expense claims are booked on.
type CostCenter struct {
	ID      int64
	Name    string
	Company string
	IsGroup bool
}

// ExpenseCategory classifies expenses and links them to an expense account.
type ExpenseCategory struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ExpenseAccount string `json:"expense_account,omitempty"`
	PolicyCovered  bool   `json:"policy_covered"`
	Disabled       bool   `json:"disabled"`
}

// Settings is the singleton holding national-level configuration.
type Settings struct {
	NationalChapterID    *int64
	NationalCostCenterID *int64
}

// CreateCostCenterInput for auto-provisioned cost centers.
type CreateCostCenterInput struct {
	Name    string
	Company string
	IsGroup bool
}

// CreateChapterInput for the admin surface.
type CreateChapterInput struct {
	Name         string
	CostCenterID *int64
	Published    bool
}

// CreateTeamInput for the admin surface.
type CreateTeamInput struct {
	Name         string
	ChapterID    *int64
	CostCenterID *int64
}
