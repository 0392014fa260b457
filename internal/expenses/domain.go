package expenses

import (
	"time"

	"github.com/google/uuid"

	"github.com/declaro-app/declaro/internal/organizations"
)

// Status enumerates the lifecycle of a volunteer expense.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusSubmitted  Status = "Submitted"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusReimbursed Status = "Reimbursed"
)

// Display returns the user-facing label for the status.
func (s Status) Display() string {
	if s == StatusSubmitted {
		return "Awaiting Approval"
	}
	return string(s)
}

// ClaimDocStatus mirrors the document state of the accounting claim.
type ClaimDocStatus string

const (
	ClaimDocDraft     ClaimDocStatus = "DRAFT"
	ClaimDocSubmitted ClaimDocStatus = "SUBMITTED"
	ClaimDocCancelled ClaimDocStatus = "CANCELLED"
)

// ClaimApprovalStatus is the approval decision recorded on the claim.
type ClaimApprovalStatus string

const (
	ClaimApprovalDraft    ClaimApprovalStatus = "Draft"
	ClaimApprovalApproved ClaimApprovalStatus = "Approved"
	ClaimApprovalRejected ClaimApprovalStatus = "Rejected"
)

// Approval level labels reported per amount band.
const (
	LevelBasic     = organizations.LevelBasic
	LevelFinancial = organizations.LevelFinancial
	LevelAdmin     = organizations.LevelAdmin
)

// Amount limits in EUR.
const (
	MaxLineAmount  = 5000.0
	MaxBatchTotal  = 10000.0
	MaxBatchItems  = 50
	MaxDescription = 200
	MaxExpenseAge  = 365 // days
)

// ExpenseClaim is the accounting record an expense books against.
type ExpenseClaim struct {
	ID             uuid.UUID
	EmployeeID     int64
	CostCenterID   int64
	CategoryID     int64
	Description    string
	Amount         float64
	ExpenseDate    time.Time
	DocStatus      ClaimDocStatus
	ApprovalStatus ClaimApprovalStatus
	IsPaid         bool
	ApproverEmail  string
	CreatedAt      time.Time
}

// Expense is the volunteer-facing tracking record linked to a claim.
type Expense struct {
	ID              uuid.UUID
	VolunteerID     int64
	ClaimID         *uuid.UUID
	OrgType         organizations.OrgType
	ChapterID       *int64
	TeamID          *int64
	CategoryID      int64
	CategoryName    string
	Description     string
	Amount          float64
	Currency        string
	ExpenseDate     time.Time
	Status          Status
	Notes           string
	AttachmentCount int
	CreatedAt       time.Time
}

// Receipt is an uploaded proof of payment.
type Receipt struct {
	FileName string
	Content  []byte
}

// Submission carries a single expense submission.
type Submission struct {
	Description string
	Amount      float64
	ExpenseDate time.Time
	OrgType     organizations.OrgType
	ChapterID   *int64
	TeamID      *int64
	Category    string
	Notes       string
	Receipt     *Receipt
}

// SubmitResult is the envelope returned to submission clients.
type SubmitResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ClaimID   string `json:"claim_id,omitempty"`
	ExpenseID string `json:"expense_id,omitempty"`
}

// BatchResult summarises a multi-line submission.
type BatchResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Submitted    int            `json:"submitted"`
	Failed       int            `json:"failed"`
	Results      []SubmitResult `json:"results,omitempty"`
}

// Statistics aggregates a volunteer's expenses over a trailing window.
type Statistics struct {
	TotalAmount    float64 `json:"total_amount"`
	ApprovedAmount float64 `json:"approved_amount"`
	PendingAmount  float64 `json:"pending_amount"`
	TotalCount     int     `json:"total_count"`
	ApprovedCount  int     `json:"approved_count"`
	PendingCount   int     `json:"pending_count"`
}

// ListFilter narrows expense listings.
type ListFilter struct {
	VolunteerID int64
	Status      Status
	Limit       int
}

// CreateClaimInput for inserting the accounting claim.
type CreateClaimInput struct {
	EmployeeID    int64
	CostCenterID  int64
	CategoryID    int64
	Description   string
	Amount        float64
	ExpenseDate   time.Time
	ApproverEmail string
}

// CreateExpenseInput for inserting the tracking record.
type CreateExpenseInput struct {
	VolunteerID int64
	ClaimID     *uuid.UUID
	OrgType     organizations.OrgType
	ChapterID   *int64
	TeamID      *int64
	CategoryID  int64
	Description string
	Amount      float64
	ExpenseDate time.Time
	Notes       string
}

// ApprovalLevelForAmount maps an amount to the approval level the report shows.
func ApprovalLevelForAmount(amount float64) string {
	return organizations.LevelForAmount(amount)
}

// MapClaimStatus derives the tracking status from the linked claim's state.
func MapClaimStatus(doc ClaimDocStatus, approval ClaimApprovalStatus, isPaid bool) Status {
	switch doc {
	case ClaimDocCancelled:
		return StatusRejected
	case ClaimDocSubmitted:
		if isPaid {
			return StatusReimbursed
		}
		switch approval {
		case ClaimApprovalApproved:
			return StatusApproved
		case ClaimApprovalRejected:
			return StatusRejected
		}
		return StatusSubmitted
	default:
		if isPaid {
			return StatusReimbursed
		}
		return StatusSubmitted
	}
}
