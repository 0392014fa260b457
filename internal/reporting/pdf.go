package reporting

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("chapter-expenses").Funcs(template.FuncMap{
	"barWidth": func(amount, max float64) int {
		if max <= 0 {
			return 0
		}
		return int(amount / max * 100)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 12px; }
h1 { font-size: 18px; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border: 1px solid #ccc; padding: 4px 6px; text-align: left; }
th { background: #f0f0f0; }
td.amount { text-align: right; }
.indicator { display: inline-block; width: 10px; height: 10px; border-radius: 5px; }
.grey { background: #999; } .yellow { background: #e6c300; } .orange { background: #e67e00; }
.green { background: #2e8b57; } .red { background: #c0392b; } .blue { background: #2b6cb0; }
.chart td.bar div { background: #2b6cb0; height: 12px; }
</style>
</head>
<body>
<h1>Expense report</h1>
<p>Generated {{.GeneratedAt}} &middot; {{.Summary.TotalCount}} expenses &middot;
total &euro; {{printf "%.2f" .Summary.TotalAmount}} &middot;
pending &euro; {{printf "%.2f" .Summary.PendingAmount}} ({{.Summary.OverdueCount}} overdue)</p>

<h2>Per organization</h2>
<table class="chart">
{{range .Summary.PerOrganization}}
<tr>
<td>{{.Organization}}</td>
<td class="bar" style="width: 60%"><div style="width: {{barWidth .Amount $.MaxOrgAmount}}%"></div></td>
<td class="amount">&euro; {{printf "%.2f" .Amount}} ({{.Count}})</td>
</tr>
{{end}}
</table>

<h2>Expenses</h2>
<table>
<tr><th></th><th>Volunteer</th><th>Organization</th><th>Category</th><th>Description</th>
<th>Date</th><th>Amount</th><th>Level</th><th>Status</th></tr>
{{range .Rows}}
<tr>
<td><span class="indicator {{.Indicator}}"></span></td>
<td>{{.VolunteerName}}</td>
<td>{{.Organization}}</td>
<td>{{.Category}}</td>
<td>{{.Description}}</td>
<td>{{.ExpenseDate.Format "2006-01-02"}}</td>
<td class="amount">&euro; {{printf "%.2f" .Amount}}</td>
<td>{{.ApprovalLevel}}</td>
<td>{{.Status}}{{if .DaysPending}} ({{.DaysPending}}d){{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>`))

type reportPage struct {
	GeneratedAt  string
	Rows         []Row
	Summary      Summary
	MaxOrgAmount float64
}

// RenderHTML produces the printable report document.
func RenderHTML(rows []Row, summary Summary, now time.Time) (string, error) {
	page := reportPage{
		GeneratedAt: now.Format("2006-01-02 15:04"),
		Rows:        rows,
		Summary:     summary,
	}
	for _, org := range summary.PerOrganization {
		if org.Amount > page.MaxOrgAmount {
			page.MaxOrgAmount = org.Amount
		}
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
