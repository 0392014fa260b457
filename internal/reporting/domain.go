package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/declaro-app/declaro/internal/expenses"
)

// Indicator colors shown next to a row's status.
const (
	IndicatorGrey   = "grey"
	IndicatorYellow = "yellow"
	IndicatorOrange = "orange"
	IndicatorGreen  = "green"
	IndicatorRed    = "red"
	IndicatorBlue   = "blue"
)

// OverdueAfterDays marks a submitted expense overdue in the report once it
// has been pending that many days, matching the reminder job's cutoff.
const OverdueAfterDays = 7

// Filter narrows the expense report.
type Filter struct {
	DateFrom  time.Time
	DateTo    time.Time
	ChapterID *int64
	OrgType   string
	Status    string
}

// Row is one line of the expense report.
type Row struct {
	ExpenseID     uuid.UUID `json:"expense_id"`
	VolunteerName string    `json:"volunteer_name"`
	Organization  string    `json:"organization"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	ExpenseDate   time.Time `json:"expense_date"`
	Status        string    `json:"status"`
	ApprovalLevel string    `json:"approval_level"`
	Indicator     string    `json:"indicator"`
	DaysPending   int       `json:"days_pending,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// OrgTotal aggregates one organization's expenses for the bar chart.
type OrgTotal struct {
	Organization string  `json:"organization"`
	Amount       float64 `json:"amount"`
	Count        int     `json:"count"`
}

// Summary condenses the filtered report.
type Summary struct {
	TotalAmount     float64    `json:"total_amount"`
	TotalCount      int        `json:"total_count"`
	ApprovedAmount  float64    `json:"approved_amount"`
	ApprovedCount   int        `json:"approved_count"`
	PendingAmount   float64    `json:"pending_amount"`
	PendingCount    int        `json:"pending_count"`
	OverdueCount    int        `json:"overdue_count"`
	VolunteerCount  int        `json:"volunteer_count"`
	PerOrganization []OrgTotal `json:"per_organization"`
}

// Column describes one report column for clients rendering the table.
type Column struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Columns lists the report table layout.
func Columns() []Column {
	return []Column{
		{Field: "volunteer_name", Label: "Volunteer", Type: "text"},
		{Field: "organization", Label: "Organization", Type: "text"},
		{Field: "category", Label: "Category", Type: "text"},
		{Field: "description", Label: "Description", Type: "text"},
		{Field: "amount", Label: "Amount", Type: "currency"},
		{Field: "expense_date", Label: "Expense Date", Type: "date"},
		{Field: "status", Label: "Status", Type: "text"},
		{Field: "approval_level", Label: "Approval Level", Type: "text"},
	}
}

// indicatorFor derives the report color for a row.
func indicatorFor(status expenses.Status, daysPending int) string {
	switch status {
	case expenses.StatusApproved:
		return IndicatorGreen
	case expenses.StatusRejected:
		return IndicatorRed
	case expenses.StatusReimbursed:
		return IndicatorBlue
	case expenses.StatusSubmitted:
		if daysPending >= OverdueAfterDays {
			return IndicatorOrange
		}
		return IndicatorYellow
	default:
		return IndicatorGrey
	}
}
