package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/declaro-app/declaro/internal/expenses"
)

// Service builds the chapter expense report.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	group    singleflight.Group
	collator *collate.Collator
	clock    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		logger:   logger,
		collator: collate.New(language.Dutch, collate.IgnoreCase),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Rows returns the filtered report rows, newest first within each organization.
func (s *Service) Rows(ctx context.Context, filter Filter) ([]Row, error) {
	records, err := s.repo.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := rec.Row
		row.Status = rec.Status.Display()
		row.ApprovalLevel = expenses.ApprovalLevelForAmount(row.Amount)
		row.SubmittedAt = rec.CreatedAt
		if rec.Status == expenses.StatusSubmitted {
			row.DaysPending = int(now.Sub(rec.CreatedAt).Hours() / 24)
		}
		row.Indicator = indicatorFor(rec.Status, row.DaysPending)
		rows = append(rows, row)
	}
	// Organization names sort with Dutch collation so chapters like
	// "IJmuiden" land where members expect them.
	sort.SliceStable(rows, func(i, j int) bool {
		if c := s.collator.CompareString(rows[i].Organization, rows[j].Organization); c != 0 {
			return c < 0
		}
		return rows[i].ExpenseDate.After(rows[j].ExpenseDate)
	})
	return rows, nil
}

// Summary aggregates the filtered report. Identical concurrent requests
// share a single computation.
func (s *Service) Summary(ctx context.Context, filter Filter) (Summary, error) {
	key := summaryKey(filter)
	result, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.Rows(ctx, filter)
		if err != nil {
			return Summary{}, err
		}
		return s.summarize(rows), nil
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

func (s *Service) summarize(rows []Row) Summary {
	var summary Summary
	perOrg := make(map[string]*OrgTotal)
	volunteers := make(map[string]struct{})
	for _, row := range rows {
		volunteers[row.VolunteerName] = struct{}{}
		summary.TotalAmount += row.Amount
		summary.TotalCount++
		switch row.Indicator {
		case IndicatorGreen, IndicatorBlue:
			summary.ApprovedAmount += row.Amount
			summary.ApprovedCount++
		case IndicatorYellow, IndicatorOrange:
			summary.PendingAmount += row.Amount
			summary.PendingCount++
			if row.Indicator == IndicatorOrange {
				summary.OverdueCount++
			}
		}
		entry, ok := perOrg[row.Organization]
		if !ok {
			entry = &OrgTotal{Organization: row.Organization}
			perOrg[row.Organization] = entry
		}
		entry.Amount += row.Amount
		entry.Count++
	}
	summary.VolunteerCount = len(volunteers)
	summary.PerOrganization = make([]OrgTotal, 0, len(perOrg))
	for _, entry := range perOrg {
		summary.PerOrganization = append(summary.PerOrganization, *entry)
	}
	sort.Slice(summary.PerOrganization, func(i, j int) bool {
		if summary.PerOrganization[i].Amount != summary.PerOrganization[j].Amount {
			return summary.PerOrganization[i].Amount > summary.PerOrganization[j].Amount
		}
		return s.collator.CompareString(summary.PerOrganization[i].Organization, summary.PerOrganization[j].Organization) < 0
	})
	return summary
}

func summaryKey(filter Filter) string {
	chapter := int64(0)
	if filter.ChapterID != nil {
		chapter = *filter.ChapterID
	}
	return fmt.Sprintf("%s|%s|%d|%s|%s",
		filter.DateFrom.Format(time.DateOnly),
		filter.DateTo.Format(time.DateOnly),
		chapter,
		filter.OrgType,
		filter.Status,
	)
}
