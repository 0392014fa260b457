package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template kinds used for rendering and metrics labels.
const (
	KindApprovalRequest = "approval_request"
	KindApproved        = "approved"
	KindRejected        = "rejected"
	KindEscalated       = "escalated"
	KindOverdue         = "overdue_reminder"
)

// EmailData carries the values substituted into notification templates.
// Missing values render as empty strings rather than failing delivery.
type EmailData struct {
	VolunteerName string
	Description   string
	Amount        float64
	ExpenseDate   string
	Organization  string
	Category      string
	Reason        string
	DaysPending   int
	ReviewURL     string
	CompanyName   string
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "approval_request"}}
<html><body>
<h2>New expense awaiting your approval</h2>
<p>{{.VolunteerName}} submitted an expense for {{.Organization}}.</p>
<table>
<tr><td><strong>Description</strong></td><td>{{.Description}}</td></tr>
<tr><td><strong>Amount</strong></td><td>&euro; {{printf "%.2f" .Amount}}</td></tr>
<tr><td><strong>Date</strong></td><td>{{.ExpenseDate}}</td></tr>
<tr><td><strong>Category</strong></td><td>{{.Category}}</td></tr>
</table>
{{if .ReviewURL}}<p><a href="{{.ReviewURL}}">Review this expense</a></p>{{end}}
<p>{{.CompanyName}}</p>
</body></html>
{{end}}

{{define "approved"}}
<html><body>
<h2>Your expense has been approved</h2>
<p>Dear {{.VolunteerName}},</p>
<p>Your expense "{{.Description}}" of &euro; {{printf "%.2f" .Amount}} has been approved and will be reimbursed.</p>
<p>{{.CompanyName}}</p>
</body></html>
{{end}}

{{define "rejected"}}
<html><body>
<h2>Your expense was not approved</h2>
<p>Dear {{.VolunteerName}},</p>
<p>Your expense "{{.Description}}" of &euro; {{printf "%.2f" .Amount}} was rejected.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>Please contact your board if you believe this is a mistake.</p>
<p>{{.CompanyName}}</p>
</body></html>
{{end}}

{{define "escalated"}}
<html><body>
<h2>Expense escalated to you</h2>
<p>An expense from {{.VolunteerName}} for {{.Organization}} needs a decision at a higher approval level.</p>
<p>"{{.Description}}" for &euro; {{printf "%.2f" .Amount}}.</p>
{{if .ReviewURL}}<p><a href="{{.ReviewURL}}">Review this expense</a></p>{{end}}
<p>{{.CompanyName}}</p>
</body></html>
{{end}}

{{define "overdue_reminder"}}
<html><body>
<h2>Expense pending for {{.DaysPending}} days</h2>
<p>The expense "{{.Description}}" from {{.VolunteerName}} ({{.Organization}}, &euro; {{printf "%.2f" .Amount}}) is still awaiting a decision.</p>
{{if .ReviewURL}}<p><a href="{{.ReviewURL}}">Review this expense</a></p>{{end}}
<p>{{.CompanyName}}</p>
</body></html>
{{end}}
`))

// Render produces the subject and HTML body for the given template kind.
func Render(kind string, data EmailData) (string, string, error) {
	var subject string
	switch kind {
	case KindApprovalRequest:
		subject = fmt.Sprintf("Expense approval required: %s", data.Description)
	case KindApproved:
		subject = fmt.Sprintf("Expense approved: %s", data.Description)
	case KindRejected:
		subject = fmt.Sprintf("Expense rejected: %s", data.Description)
	case KindEscalated:
		subject = fmt.Sprintf("Expense escalated: %s", data.Description)
	case KindOverdue:
		subject = fmt.Sprintf("Reminder: expense pending approval for %d days", data.DaysPending)
	default:
		return "", "", fmt.Errorf("notifications: unknown template kind %q", kind)
	}

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, kind, data); err != nil {
		return "", "", err
	}
	return subject, body.String(), nil
}
