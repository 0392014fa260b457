package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/volunteers"
)

type memoryExpenseRepo struct {
	claims      map[uuid.UUID]ExpenseClaim
	expenses    map[uuid.UUID]Expense
	attachments map[uuid.UUID][]Receipt
	failExpense bool
	failAttach  bool
}

type memoryExpenseTx struct {
	repo *memoryExpenseRepo
}

func newMemoryExpenseRepo() *memoryExpenseRepo {
	return &memoryExpenseRepo{
		claims:      make(map[uuid.UUID]ExpenseClaim),
		expenses:    make(map[uuid.UUID]Expense),
		attachments: make(map[uuid.UUID][]Receipt),
	}
}

func (r *memoryExpenseRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryExpenseTx{repo: r})
}

func (r *memoryExpenseRepo) CreateClaim(ctx context.Context, input CreateClaimInput) (ExpenseClaim, error) {
	claim := ExpenseClaim{
		ID:             uuid.New(),
		EmployeeID:     input.EmployeeID,
		CostCenterID:   input.CostCenterID,
		CategoryID:     input.CategoryID,
		Description:    input.Description,
		Amount:         input.Amount,
		ExpenseDate:    input.ExpenseDate,
		DocStatus:      ClaimDocDraft,
		ApprovalStatus: ClaimApprovalDraft,
		ApproverEmail:  input.ApproverEmail,
		CreatedAt:      time.Now(),
	}
	r.claims[claim.ID] = claim
	return claim, nil
}

func (r *memoryExpenseRepo) CreateExpense(ctx context.Context, input CreateExpenseInput) (Expense, error) {
	if r.failExpense {
		return Expense{}, errors.New("insert failed")
	}
	exp := Expense{
		ID:          uuid.New(),
		VolunteerID: input.VolunteerID,
		ClaimID:     input.ClaimID,
		OrgType:     input.OrgType,
		ChapterID:   input.ChapterID,
		TeamID:      input.TeamID,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Amount:      input.Amount,
		Currency:    "EUR",
		ExpenseDate: input.ExpenseDate,
		Status:      StatusSubmitted,
		Notes:       input.Notes,
		CreatedAt:   time.Now(),
	}
	r.expenses[exp.ID] = exp
	return exp, nil
}

func (r *memoryExpenseRepo) AddAttachment(ctx context.Context, expenseID uuid.UUID, receipt Receipt) error {
	if r.failAttach {
		return errors.New("attach failed")
	}
	r.attachments[expenseID] = append(r.attachments[expenseID], receipt)
	exp := r.expenses[expenseID]
	exp.AttachmentCount++
	r.expenses[expenseID] = exp
	return nil
}

func (r *memoryExpenseRepo) GetExpense(ctx context.Context, id uuid.UUID) (Expense, error) {
	exp, ok := r.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	return exp, nil
}

func (r *memoryExpenseRepo) FindByClaim(ctx context.Context, claimID uuid.UUID) (Expense, error) {
	for _, exp := range r.expenses {
		if exp.ClaimID != nil && *exp.ClaimID == claimID {
			return exp, nil
		}
	}
	return Expense{}, ErrExpenseNotFound
}

func (r *memoryExpenseRepo) GetClaim(ctx context.Context, id uuid.UUID) (ExpenseClaim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return ExpenseClaim{}, ErrClaimNotFound
	}
	return claim, nil
}

func (r *memoryExpenseRepo) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	var out []Expense
	for _, exp := range r.expenses {
		if exp.VolunteerID != filter.VolunteerID {
			continue
		}
		if filter.Status != "" && exp.Status != filter.Status {
			continue
		}
		out = append(out, exp)
	}
	return out, nil
}

func (r *memoryExpenseRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]Expense, error) {
	var out []Expense
	for _, exp := range r.expenses {
		if exp.Status == StatusSubmitted && !exp.CreatedAt.After(cutoff) {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (r *memoryExpenseRepo) Statistics(ctx context.Context, volunteerID int64, since time.Time) (Statistics, error) {
	var s Statistics
	for _, exp := range r.expenses {
		if exp.VolunteerID != volunteerID || exp.ExpenseDate.Before(since) {
			continue
		}
		s.TotalAmount += exp.Amount
		s.TotalCount++
		switch exp.Status {
		case StatusApproved, StatusReimbursed:
			s.ApprovedAmount += exp.Amount
			s.ApprovedCount++
		case StatusSubmitted:
			s.PendingAmount += exp.Amount
			s.PendingCount++
		}
	}
	return s, nil
}

func (t *memoryExpenseTx) UpdateExpenseStatus(ctx context.Context, id uuid.UUID, status Status) error {
	exp, ok := t.repo.expenses[id]
	if !ok {
		return ErrExpenseNotFound
	}
	exp.Status = status
	t.repo.expenses[id] = exp
	return nil
}

func (t *memoryExpenseTx) SetClaimApproval(ctx context.Context, claimID uuid.UUID, approval ClaimApprovalStatus, approver string) error {
	claim, ok := t.repo.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	claim.DocStatus = ClaimDocSubmitted
	claim.ApprovalStatus = approval
	claim.ApproverEmail = approver
	t.repo.claims[claimID] = claim
	return nil
}

func (t *memoryExpenseTx) MarkClaimPaid(ctx context.Context, claimID uuid.UUID) error {
	claim, ok := t.repo.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	claim.IsPaid = true
	t.repo.claims[claimID] = claim
	return nil
}

type fakeVolunteers struct {
	byEmail   map[string]volunteers.Volunteer
	byID      map[int64]volunteers.Volunteer
	employees map[int64]int64
}

func (f *fakeVolunteers) ByUserEmail(ctx context.Context, email string) (volunteers.Volunteer, error) {
	v, ok := f.byEmail[email]
	if !ok {
		return volunteers.Volunteer{}, volunteers.ErrVolunteerNotFound
	}
	return v, nil
}

func (f *fakeVolunteers) Get(ctx context.Context, id int64) (volunteers.Volunteer, error) {
	v, ok := f.byID[id]
	if !ok {
		return volunteers.Volunteer{}, volunteers.ErrVolunteerNotFound
	}
	return v, nil
}

func (f *fakeVolunteers) EnsureEmployee(ctx context.Context, volunteerID int64) (int64, error) {
	if id, ok := f.employees[volunteerID]; ok {
		return id, nil
	}
	return volunteerID + 1000, nil
}

type fakeOrgs struct {
	chapterMembers map[[2]int64]bool
	teamMembers    map[[2]int64]bool
	boards         map[[2]int64]bool
	nationalBoard  map[int64]bool
	policyCovered  map[string]bool
	approvers      []string
	teams          map[int64]organizations.Team
	costCenter     organizations.CostCenter
	categories     map[string]organizations.ExpenseCategory
}

func newFakeOrgs() *fakeOrgs {
	return &fakeOrgs{
		chapterMembers: make(map[[2]int64]bool),
		teamMembers:    make(map[[2]int64]bool),
		boards:         make(map[[2]int64]bool),
		nationalBoard:  make(map[int64]bool),
		policyCovered:  make(map[string]bool),
		teams:          make(map[int64]organizations.Team),
		costCenter:     organizations.CostCenter{ID: 42, Name: "Volunteer Expenses - VER"},
		categories:     make(map[string]organizations.ExpenseCategory),
	}
}

func (f *fakeOrgs) MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error) {
	return f.chapterMembers[[2]int64{memberID, chapterID}], nil
}

func (f *fakeOrgs) VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error) {
	return f.teamMembers[[2]int64{volunteerID, teamID}], nil
}

func (f *fakeOrgs) VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error) {
	return f.boards[[2]int64{volunteerID, chapterID}], nil
}

func (f *fakeOrgs) VolunteerOnNationalBoard(ctx context.Context, volunteerID int64) (bool, error) {
	return f.nationalBoard[volunteerID], nil
}

func (f *fakeOrgs) IsPolicyCoveredCategory(ctx context.Context, name string) (bool, error) {
	return f.policyCovered[name], nil
}

func (f *fakeOrgs) ResolveCostCenter(ctx context.Context, scope organizations.Scope) (organizations.CostCenter, error) {
	return f.costCenter, nil
}

func (f *fakeOrgs) EnsureCategory(ctx context.Context, name string) (organizations.ExpenseCategory, error) {
	if cat, ok := f.categories[name]; ok {
		return cat, nil
	}
	cat := organizations.ExpenseCategory{ID: int64(len(f.categories) + 1), Name: name}
	f.categories[name] = cat
	return cat, nil
}

func (f *fakeOrgs) ApproverEmails(ctx context.Context, scope organizations.Scope) ([]string, error) {
	return f.approvers, nil
}

func (f *fakeOrgs) ApproverEmailsForAmount(ctx context.Context, scope organizations.Scope, amount float64) ([]string, error) {
	return f.approvers, nil
}

func (f *fakeOrgs) GetTeam(ctx context.Context, id int64) (organizations.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return organizations.Team{}, organizations.ErrTeamNotFound
	}
	return team, nil
}

func (f *fakeOrgs) ListChaptersForMember(ctx context.Context, memberID int64) ([]organizations.Chapter, error) {
	var out []organizations.Chapter
	for key, ok := range f.chapterMembers {
		if ok && key[0] == memberID {
			out = append(out, organizations.Chapter{ID: key[1], Name: fmt.Sprintf("Chapter %d", key[1])})
		}
	}
	return out, nil
}

func (f *fakeOrgs) ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]organizations.Team, error) {
	var out []organizations.Team
	for key, ok := range f.teamMembers {
		if ok && key[0] == volunteerID {
			if team, found := f.teams[key[1]]; found {
				out = append(out, team)
			}
		}
	}
	return out, nil
}

func (f *fakeOrgs) ListCategories(ctx context.Context) ([]organizations.ExpenseCategory, error) {
	var out []organizations.ExpenseCategory
	for _, cat := range f.categories {
		out = append(out, cat)
	}
	return out, nil
}

type fakeAdmins struct {
	admins map[string]bool
}

func (f *fakeAdmins) IsAdmin(ctx context.Context, email string) (bool, error) {
	return f.admins[email], nil
}

type recordedEmail struct {
	kind       string
	recipients []string
}

type fakeNotifier struct {
	sent []recordedEmail
}

func (f *fakeNotifier) ExpenseSubmitted(ctx context.Context, exp Expense, volunteerName string, approvers []string) error {
	f.sent = append(f.sent, recordedEmail{kind: "submitted", recipients: approvers})
	return nil
}

func (f *fakeNotifier) ExpenseApproved(ctx context.Context, exp Expense, volunteerName, recipient string) error {
	f.sent = append(f.sent, recordedEmail{kind: "approved", recipients: []string{recipient}})
	return nil
}

func (f *fakeNotifier) ExpenseRejected(ctx context.Context, exp Expense, volunteerName, recipient, reason string) error {
	f.sent = append(f.sent, recordedEmail{kind: "rejected", recipients: []string{recipient}})
	return nil
}

func (f *fakeNotifier) ExpenseEscalated(ctx context.Context, exp Expense, volunteerName string, approvers []string) error {
	f.sent = append(f.sent, recordedEmail{kind: "escalated", recipients: approvers})
	return nil
}

type fakeApprovals struct {
	logs []shared.ApprovalLog
}

func (f *fakeApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fixture struct {
	repo      *memoryExpenseRepo
	vols      *fakeVolunteers
	orgs      *fakeOrgs
	admins    *fakeAdmins
	notifier  *fakeNotifier
	approvals *fakeApprovals
	service   *Service
}

func newFixture() *fixture {
	memberID := int64(10)
	repo := newMemoryExpenseRepo()
	vol := volunteers.Volunteer{ID: 1, Name: "Jan Visser", Email: "jan@example.org", MemberID: &memberID, IsActive: true}
	vols := &fakeVolunteers{
		byEmail:   map[string]volunteers.Volunteer{"jan@example.org": vol},
		byID:      map[int64]volunteers.Volunteer{1: vol},
		employees: map[int64]int64{},
	}
	orgs := newFakeOrgs()
	orgs.chapterMembers[[2]int64{10, 5}] = true
	orgs.approvers = []string{"treasurer@example.org"}
	admins := &fakeAdmins{admins: map[string]bool{"admin@example.org": true}}
	notifier := &fakeNotifier{}
	approvals := &fakeApprovals{}
	service := NewService(repo, vols, orgs, admins, notifier, approvals, slog.Default())
	return &fixture{repo: repo, vols: vols, orgs: orgs, admins: admins, notifier: notifier, approvals: approvals, service: service}
}

func chapterSubmission() Submission {
	chapterID := int64(5)
	return Submission{
		Description: "Train tickets for regional meetup",
		Amount:      48.50,
		ExpenseDate: time.Now().AddDate(0, 0, -3),
		OrgType:     organizations.OrgTypeChapter,
		ChapterID:   &chapterID,
		Category:    "Travel",
	}
}

func TestValidateSubmission(t *testing.T) {
	base := chapterSubmission()

	cases := []struct {
		name    string
		mutate  func(*Submission)
		message string
	}{
		{"valid", func(s *Submission) {}, ""},
		{"missing description", func(s *Submission) { s.Description = " " }, "Description is required"},
		{"zero amount", func(s *Submission) { s.Amount = 0 }, "Amount must be greater than zero"},
		{"negative amount", func(s *Submission) { s.Amount = -5 }, "Amount must be greater than zero"},
		{"over limit", func(s *Submission) { s.Amount = 5000.01 }, "Amount cannot exceed €5,000 per expense"},
		{"future date", func(s *Submission) { s.ExpenseDate = time.Now().AddDate(0, 0, 2) }, "Expense date cannot be in the future"},
		{"too old", func(s *Submission) { s.ExpenseDate = time.Now().AddDate(-2, 0, 0) }, "Expenses older than 365 days cannot be submitted"},
		{"long description", func(s *Submission) {
			for len(s.Description) <= MaxDescription {
				s.Description += s.Description
			}
		}, "Description cannot exceed 200 characters"},
		{"bad org type", func(s *Submission) { s.OrgType = "Region" }, "Organization type must be Chapter, Team or National"},
		{"chapter without chapter", func(s *Submission) { s.ChapterID = nil }, "Chapter is required for chapter expenses"},
		{"missing category", func(s *Submission) { s.Category = "" }, "Category is required"},
		{"bad receipt extension", func(s *Submission) {
			s.Receipt = &Receipt{FileName: "virus.exe", Content: []byte("x")}
		}, "Receipt file type .exe is not allowed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := base
			tc.mutate(&sub)
			require.Equal(t, tc.message, ValidateSubmission(sub))
		})
	}
}

func TestSubmitCreatesDraftClaimAndTrackingRecord(t *testing.T) {
	fx := newFixture()

	result, err := fx.service.Submit(context.Background(), "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.ClaimID)
	require.NotEmpty(t, result.ExpenseID)

	claimID := uuid.MustParse(result.ClaimID)
	claim := fx.repo.claims[claimID]
	require.Equal(t, ClaimDocDraft, claim.DocStatus, "claims are never auto-submitted")
	require.Equal(t, ClaimApprovalDraft, claim.ApprovalStatus)
	require.Equal(t, "treasurer@example.org", claim.ApproverEmail)

	expID := uuid.MustParse(result.ExpenseID)
	exp := fx.repo.expenses[expID]
	require.Equal(t, StatusSubmitted, exp.Status)
	require.NotNil(t, exp.ClaimID)
	require.Equal(t, claimID, *exp.ClaimID)
	require.Equal(t, "EUR", exp.Currency)

	require.Len(t, fx.approvals.logs, 1)
	require.Equal(t, shared.ApprovalSubmit, fx.approvals.logs[0].Action)
	require.Len(t, fx.notifier.sent, 1)
	require.Equal(t, "submitted", fx.notifier.sent[0].kind)
	require.Equal(t, []string{"treasurer@example.org"}, fx.notifier.sent[0].recipients)
}

func TestSubmitDeniedWithoutChapterMembership(t *testing.T) {
	fx := newFixture()
	sub := chapterSubmission()
	otherChapter := int64(99)
	sub.ChapterID = &otherChapter

	result, err := fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "chapter")
	require.Contains(t, result.Message, "membership required")
	require.Empty(t, fx.repo.claims)
}

func TestSubmitTeamRequiresActiveMembership(t *testing.T) {
	fx := newFixture()
	teamID := int64(7)
	sub := chapterSubmission()
	sub.OrgType = organizations.OrgTypeTeam
	sub.ChapterID = nil
	sub.TeamID = &teamID

	result, err := fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "membership required")

	fx.orgs.teamMembers[[2]int64{1, 7}] = true
	result, err = fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestSubmitNationalPolicyAndBoardRules(t *testing.T) {
	fx := newFixture()
	sub := chapterSubmission()
	sub.OrgType = organizations.OrgTypeNational
	sub.ChapterID = nil
	sub.Category = "Legal Fees"

	result, err := fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "board membership required")

	// Policy-covered categories pass without board membership.
	fx.orgs.policyCovered["Legal Fees"] = true
	result, err = fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)

	// Board members pass regardless of category.
	fx.orgs.policyCovered["Legal Fees"] = false
	fx.orgs.nationalBoard[1] = true
	result, err = fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestSubmitUnknownVolunteer(t *testing.T) {
	fx := newFixture()

	result, err := fx.service.Submit(context.Background(), "stranger@example.org", chapterSubmission())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "No volunteer record")
}

func TestSubmitKeepsClaimWhenTrackingInsertFails(t *testing.T) {
	fx := newFixture()
	fx.repo.failExpense = true

	result, err := fx.service.Submit(context.Background(), "jan@example.org", chapterSubmission())
	require.Error(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.ClaimID)
	require.Len(t, fx.repo.claims, 1)
}

func TestSubmitReceiptFailureDoesNotFailSubmission(t *testing.T) {
	fx := newFixture()
	fx.repo.failAttach = true
	sub := chapterSubmission()
	sub.Receipt = &Receipt{FileName: "ticket.pdf", Content: []byte("%PDF-1.4")}

	result, err := fx.service.Submit(context.Background(), "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)

	expID := uuid.MustParse(result.ExpenseID)
	require.Zero(t, fx.repo.expenses[expID].AttachmentCount)
}

func TestSubmitBatchLimits(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.SubmitBatch(ctx, "jan@example.org", nil)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "No expenses provided", result.Message)

	many := make([]Submission, MaxBatchItems+1)
	for i := range many {
		many[i] = chapterSubmission()
	}
	result, err = fx.service.SubmitBatch(ctx, "jan@example.org", many)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "50")

	over := chapterSubmission()
	over.Amount = 6000
	result, err = fx.service.SubmitBatch(ctx, "jan@example.org", []Submission{over})
	require.NoError(t, err)
	require.Contains(t, result.Message, "€5,000")

	three := []Submission{chapterSubmission(), chapterSubmission(), chapterSubmission()}
	for i := range three {
		three[i].Amount = 4000
	}
	result, err = fx.service.SubmitBatch(ctx, "jan@example.org", three)
	require.NoError(t, err)
	require.Contains(t, result.Message, "€10,000")
}

func TestSubmitBatchPartialSuccess(t *testing.T) {
	fx := newFixture()
	good := chapterSubmission()
	bad := chapterSubmission()
	bad.Amount = -1

	result, err := fx.service.SubmitBatch(context.Background(), "jan@example.org", []Submission{good, bad})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 1, result.Submitted)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 2)
	require.True(t, result.Results[0].Success)
	require.False(t, result.Results[1].Success)
}

func TestListCollapsesDuplicates(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, -2)

	claimID := uuid.New()
	_, err := fx.repo.CreateExpense(ctx, CreateExpenseInput{VolunteerID: 1, Description: "Parking", Amount: 12.5, ExpenseDate: date})
	require.NoError(t, err)
	linked, err := fx.repo.CreateExpense(ctx, CreateExpenseInput{VolunteerID: 1, ClaimID: &claimID, Description: "Parking", Amount: 12.5, ExpenseDate: date})
	require.NoError(t, err)
	_, err = fx.repo.CreateExpense(ctx, CreateExpenseInput{VolunteerID: 1, Description: "Stamps", Amount: 4, ExpenseDate: date})
	require.NoError(t, err)

	rows, err := fx.service.List(ctx, ListFilter{VolunteerID: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.Description == "Parking" {
			require.Equal(t, linked.ID, row.ID, "claim-linked row wins")
		}
	}
}

func TestApprovePermissions(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	expID := uuid.MustParse(result.ExpenseID)

	boardID := int64(20)
	board := volunteers.Volunteer{ID: boardID, Name: "Board", Email: "board@example.org", IsActive: true}
	fx.vols.byEmail["board@example.org"] = board
	fx.vols.byID[boardID] = board

	// Wrong chapter board member is denied.
	fx.orgs.boards[[2]int64{boardID, 99}] = true
	err = fx.service.Approve(ctx, "board@example.org", expID, "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// No volunteer record and no admin role is denied.
	err = fx.service.Approve(ctx, "nobody@example.org", expID, "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Own chapter board member approves.
	fx.orgs.boards[[2]int64{boardID, 5}] = true
	err = fx.service.Approve(ctx, "board@example.org", expID, "looks good")
	require.NoError(t, err)

	exp := fx.repo.expenses[expID]
	require.Equal(t, StatusApproved, exp.Status)
	claim := fx.repo.claims[*exp.ClaimID]
	require.Equal(t, ClaimApprovalApproved, claim.ApprovalStatus)
	require.Equal(t, ClaimDocSubmitted, claim.DocStatus)

	// Already decided expenses cannot be decided again.
	err = fx.service.Approve(ctx, "board@example.org", expID, "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAdminAlwaysApproves(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	expID := uuid.MustParse(result.ExpenseID)

	err = fx.service.Reject(ctx, "admin@example.org", expID, "missing receipt")
	require.NoError(t, err)

	exp := fx.repo.expenses[expID]
	require.Equal(t, StatusRejected, exp.Status)
	claim := fx.repo.claims[*exp.ClaimID]
	require.Equal(t, ClaimApprovalRejected, claim.ApprovalStatus)

	var kinds []string
	for _, mail := range fx.notifier.sent {
		kinds = append(kinds, mail.kind)
	}
	require.Contains(t, kinds, "rejected")
}

func TestMarkReimbursed(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	expID := uuid.MustParse(result.ExpenseID)

	err = fx.service.MarkReimbursed(ctx, "admin@example.org", expID)
	require.ErrorIs(t, err, ErrInvalidStatus, "only approved expenses can be paid out")

	require.NoError(t, fx.service.Approve(ctx, "admin@example.org", expID, ""))
	require.NoError(t, fx.service.MarkReimbursed(ctx, "admin@example.org", expID))

	exp := fx.repo.expenses[expID]
	require.Equal(t, StatusReimbursed, exp.Status)
	require.True(t, fx.repo.claims[*exp.ClaimID].IsPaid)
}

func TestSyncFromClaim(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	claimID := uuid.MustParse(result.ClaimID)
	expID := uuid.MustParse(result.ExpenseID)

	claim := fx.repo.claims[claimID]
	claim.DocStatus = ClaimDocSubmitted
	claim.ApprovalStatus = ClaimApprovalApproved
	claim.IsPaid = true
	fx.repo.claims[claimID] = claim

	require.NoError(t, fx.service.SyncFromClaim(ctx, claimID))
	require.Equal(t, StatusReimbursed, fx.repo.expenses[expID].Status)
}

func TestMapClaimStatus(t *testing.T) {
	cases := []struct {
		doc      ClaimDocStatus
		approval ClaimApprovalStatus
		paid     bool
		want     Status
	}{
		{ClaimDocDraft, ClaimApprovalDraft, false, StatusSubmitted},
		{ClaimDocSubmitted, ClaimApprovalDraft, false, StatusSubmitted},
		{ClaimDocSubmitted, ClaimApprovalApproved, false, StatusApproved},
		{ClaimDocSubmitted, ClaimApprovalRejected, false, StatusRejected},
		{ClaimDocSubmitted, ClaimApprovalApproved, true, StatusReimbursed},
		{ClaimDocCancelled, ClaimApprovalDraft, false, StatusRejected},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MapClaimStatus(tc.doc, tc.approval, tc.paid))
	}
}

func TestApprovalLevelForAmount(t *testing.T) {
	require.Equal(t, LevelBasic, ApprovalLevelForAmount(99.99))
	require.Equal(t, LevelBasic, ApprovalLevelForAmount(100))
	require.Equal(t, LevelFinancial, ApprovalLevelForAmount(101))
	require.Equal(t, LevelFinancial, ApprovalLevelForAmount(500))
	require.Equal(t, LevelAdmin, ApprovalLevelForAmount(750))
	require.Equal(t, LevelAdmin, ApprovalLevelForAmount(1000))
}

func TestStatisticsForEmail(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	first, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	_, err = fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)

	require.NoError(t, fx.service.Approve(ctx, "admin@example.org", uuid.MustParse(first.ExpenseID), ""))

	stats, err := fx.service.StatisticsForEmail(ctx, "jan@example.org")
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalCount)
	require.Equal(t, 1, stats.ApprovedCount)
	require.Equal(t, 1, stats.PendingCount)
	require.InDelta(t, 97.0, stats.TotalAmount, 0.001)
}

func TestTeamLeadApprovalLimit(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	teamID := int64(7)
	chapterID := int64(5)
	fx.orgs.teams[teamID] = organizations.Team{ID: teamID, Name: "Events", ChapterID: &chapterID, IsActive: true}
	fx.orgs.teamMembers[[2]int64{1, teamID}] = true

	leadID := int64(30)
	lead := volunteers.Volunteer{ID: leadID, Name: "Lead", Email: "lead@example.org", IsActive: true}
	fx.vols.byEmail["lead@example.org"] = lead
	fx.vols.byID[leadID] = lead
	fx.orgs.teamMembers[[2]int64{leadID, teamID}] = true
	fx.orgs.approvers = []string{"lead@example.org"}

	sub := chapterSubmission()
	sub.OrgType = organizations.OrgTypeTeam
	sub.ChapterID = nil
	sub.TeamID = &teamID

	result, err := fx.service.Submit(ctx, "jan@example.org", sub)
	require.NoError(t, err)
	smallID := uuid.MustParse(result.ExpenseID)

	sub.Amount = 600
	result, err = fx.service.Submit(ctx, "jan@example.org", sub)
	require.NoError(t, err)
	largeID := uuid.MustParse(result.ExpenseID)

	// The lead signs off small amounts.
	require.NoError(t, fx.service.Approve(ctx, "lead@example.org", smallID, ""))

	// Amounts above the limit need the chapter board.
	err = fx.service.Approve(ctx, "lead@example.org", largeID, "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	boardID := int64(31)
	board := volunteers.Volunteer{ID: boardID, Name: "Board", Email: "board@example.org", IsActive: true}
	fx.vols.byEmail["board@example.org"] = board
	fx.vols.byID[boardID] = board
	fx.orgs.boards[[2]int64{boardID, chapterID}] = true
	require.NoError(t, fx.service.Approve(ctx, "board@example.org", largeID, ""))
}

func TestSubmitEscalatesLargeTeamExpense(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	teamID := int64(7)
	chapterID := int64(5)
	fx.orgs.teams[teamID] = organizations.Team{ID: teamID, Name: "Events", ChapterID: &chapterID, IsActive: true}
	fx.orgs.teamMembers[[2]int64{1, teamID}] = true
	fx.orgs.approvers = []string{"board@example.org"}

	sub := chapterSubmission()
	sub.OrgType = organizations.OrgTypeTeam
	sub.ChapterID = nil
	sub.TeamID = &teamID

	result, err := fx.service.Submit(ctx, "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, fx.notifier.sent, 1)
	require.Equal(t, "submitted", fx.notifier.sent[0].kind)

	sub.Amount = 600
	result, err = fx.service.Submit(ctx, "jan@example.org", sub)
	require.NoError(t, err)
	require.True(t, result.Success)

	// Above the team lead limit the board is notified via the escalation
	// email and the trail records the escalation.
	require.Len(t, fx.notifier.sent, 2)
	require.Equal(t, "escalated", fx.notifier.sent[1].kind)
	require.Equal(t, []string{"board@example.org"}, fx.notifier.sent[1].recipients)

	expID := uuid.MustParse(result.ExpenseID)
	var escalations []shared.ApprovalLog
	for _, log := range fx.approvals.logs {
		if log.ExpenseID == expID && log.Action == shared.ApprovalEscalate {
			escalations = append(escalations, log)
		}
	}
	require.Len(t, escalations, 1)
}

func TestDetailsVisibility(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.service.Submit(ctx, "jan@example.org", chapterSubmission())
	require.NoError(t, err)
	expID := uuid.MustParse(result.ExpenseID)

	// The submitter sees their own expense.
	exp, err := fx.service.Details(ctx, "jan@example.org", expID)
	require.NoError(t, err)
	require.Equal(t, expID, exp.ID)

	// An unrelated account does not.
	other := volunteers.Volunteer{ID: 40, Name: "Other", Email: "other@example.org", IsActive: true}
	fx.vols.byEmail["other@example.org"] = other
	fx.vols.byID[40] = other
	_, err = fx.service.Details(ctx, "other@example.org", expID)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Administrators always see it.
	_, err = fx.service.Details(ctx, "admin@example.org", expID)
	require.NoError(t, err)
}

func TestOrganizationOptionsPerScope(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	chapters, err := fx.service.OrganizationOptions(ctx, "jan@example.org", organizations.OrgTypeChapter)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, int64(5), chapters[0].ID)

	teamID := int64(7)
	fx.orgs.teams[teamID] = organizations.Team{ID: teamID, Name: "Events", IsActive: true}
	fx.orgs.teamMembers[[2]int64{1, teamID}] = true
	teams, err := fx.service.OrganizationOptions(ctx, "jan@example.org", organizations.OrgTypeTeam)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.Equal(t, "Events", teams[0].Name)

	national, err := fx.service.OrganizationOptions(ctx, "jan@example.org", organizations.OrgTypeNational)
	require.NoError(t, err)
	require.Empty(t, national)
}
