package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/volunteers"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrClaimNotFound   = errors.New("expense claim not found")
	ErrInvalidStatus   = errors.New("invalid status for operation")
	ErrNotAuthorized   = errors.New("not authorized to approve this expense")
)

// allowedReceiptExtensions lists accepted receipt file types.
var allowedReceiptExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".heic": true, ".xlsx": true, ".docx": true, ".txt": true,
}

// MaxReceiptBytes caps uploaded receipts at 10 MB.
const MaxReceiptBytes = 10 << 20

// VolunteerDirectory resolves volunteers and their employee linkage.
type VolunteerDirectory interface {
	ByUserEmail(ctx context.Context, email string) (volunteers.Volunteer, error)
	Get(ctx context.Context, id int64) (volunteers.Volunteer, error)
	EnsureEmployee(ctx context.Context, volunteerID int64) (int64, error)
}

// OrgDirectory answers organization membership and accounting questions.
type OrgDirectory interface {
	MemberBelongsToChapter(ctx context.Context, memberID, chapterID int64) (bool, error)
	VolunteerActiveInTeam(ctx context.Context, volunteerID, teamID int64) (bool, error)
	VolunteerOnChapterBoard(ctx context.Context, volunteerID, chapterID int64) (bool, error)
	VolunteerOnNationalBoard(ctx context.Context, volunteerID int64) (bool, error)
	IsPolicyCoveredCategory(ctx context.Context, name string) (bool, error)
	ResolveCostCenter(ctx context.Context, scope organizations.Scope) (organizations.CostCenter, error)
	EnsureCategory(ctx context.Context, name string) (organizations.ExpenseCategory, error)
	ApproverEmails(ctx context.Context, scope organizations.Scope) ([]string, error)
	ApproverEmailsForAmount(ctx context.Context, scope organizations.Scope, amount float64) ([]string, error)
	GetTeam(ctx context.Context, id int64) (organizations.Team, error)
	ListChaptersForMember(ctx context.Context, memberID int64) ([]organizations.Chapter, error)
	ListTeamsForVolunteer(ctx context.Context, volunteerID int64) ([]organizations.Team, error)
	ListCategories(ctx context.Context) ([]organizations.ExpenseCategory, error)
}

// AdminDirectory reports whether an account has administrator rights.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// Notifier delivers expense lifecycle emails.
type Notifier interface {
	ExpenseSubmitted(ctx context.Context, exp Expense, volunteerName string, approvers []string) error
	ExpenseApproved(ctx context.Context, exp Expense, volunteerName, recipient string) error
	ExpenseRejected(ctx context.Context, exp Expense, volunteerName, recipient, reason string) error
	ExpenseEscalated(ctx context.Context, exp Expense, volunteerName string, approvers []string) error
}

// ApprovalLogger records the approval trail.
type ApprovalLogger interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service orchestrates expense submission and approval.
type Service struct {
	repo      Repository
	vols      VolunteerDirectory
	orgs      OrgDirectory
	admins    AdminDirectory
	notifier  Notifier
	approvals ApprovalLogger
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, vols VolunteerDirectory, orgs OrgDirectory, admins AdminDirectory, notifier Notifier, approvals ApprovalLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		vols:      vols,
		orgs:      orgs,
		admins:    admins,
		notifier:  notifier,
		approvals: approvals,
		logger:    logger,
	}
}

// ValidateSubmission checks a single submission and returns the first
// violation as a user-facing message, or an empty string when valid.
func ValidateSubmission(sub Submission) string {
	if strings.TrimSpace(sub.Description) == "" {
		return "Description is required"
	}
	if len(sub.Description) > MaxDescription {
		return fmt.Sprintf("Description cannot exceed %d characters", MaxDescription)
	}
	if sub.Amount <= 0 {
		return "Amount must be greater than zero"
	}
	if sub.Amount > MaxLineAmount {
		return "Amount cannot exceed €5,000 per expense"
	}
	if sub.ExpenseDate.IsZero() {
		return "Expense date is required"
	}
	now := time.Now()
	if sub.ExpenseDate.After(now) {
		return "Expense date cannot be in the future"
	}
	if sub.ExpenseDate.Before(now.AddDate(0, 0, -MaxExpenseAge)) {
		return "Expenses older than 365 days cannot be submitted"
	}
	if !sub.OrgType.Valid() {
		return "Organization type must be Chapter, Team or National"
	}
	if sub.OrgType == organizations.OrgTypeChapter && sub.ChapterID == nil {
		return "Chapter is required for chapter expenses"
	}
	if sub.OrgType == organizations.OrgTypeTeam && sub.TeamID == nil {
		return "Team is required for team expenses"
	}
	if strings.TrimSpace(sub.Category) == "" {
		return "Category is required"
	}
	if sub.Receipt != nil {
		if msg := validateReceipt(*sub.Receipt); msg != "" {
			return msg
		}
	}
	return ""
}

func validateReceipt(receipt Receipt) string {
	ext := strings.ToLower(filepath.Ext(receipt.FileName))
	if !allowedReceiptExtensions[ext] {
		return fmt.Sprintf("Receipt file type %s is not allowed", ext)
	}
	if len(receipt.Content) > MaxReceiptBytes {
		return "Receipt file cannot exceed 10 MB"
	}
	return ""
}

// checkEligibility verifies the volunteer may submit in the requested scope.
func (s *Service) checkEligibility(ctx context.Context, vol volunteers.Volunteer, sub Submission) (string, error) {
	switch sub.OrgType {
	case organizations.OrgTypeChapter:
		if vol.MemberID == nil {
			return "Chapter membership required: no member record is linked to your volunteer profile", nil
		}
		ok, err := s.orgs.MemberBelongsToChapter(ctx, *vol.MemberID, *sub.ChapterID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "Chapter membership required: you are not a member of this chapter", nil
		}
	case organizations.OrgTypeTeam:
		ok, err := s.orgs.VolunteerActiveInTeam(ctx, vol.ID, *sub.TeamID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "Team membership required: you are not an active member of this team", nil
		}
	case organizations.OrgTypeNational:
		covered, err := s.orgs.IsPolicyCoveredCategory(ctx, sub.Category)
		if err != nil {
			return "", err
		}
		if covered {
			return "", nil
		}
		onBoard, err := s.orgs.VolunteerOnNationalBoard(ctx, vol.ID)
		if err != nil {
			return "", err
		}
		if !onBoard {
			return "National board membership required for this expense category", nil
		}
	}
	return "", nil
}

// Submit runs the full submission pipeline for one expense. Business-rule
// failures come back in the result envelope; the error is reserved for
// unexpected infrastructure failures.
func (s *Service) Submit(ctx context.Context, actorEmail string, sub Submission) (SubmitResult, error) {
	vol, err := s.vols.ByUserEmail(ctx, actorEmail)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			return SubmitResult{Message: "No volunteer record found for your account"}, nil
		}
		return SubmitResult{Message: "Could not resolve your volunteer record"}, err
	}

	if msg := ValidateSubmission(sub); msg != "" {
		return SubmitResult{Message: msg}, nil
	}

	denied, err := s.checkEligibility(ctx, vol, sub)
	if err != nil {
		return SubmitResult{Message: "Could not verify your eligibility for this expense"}, err
	}
	if denied != "" {
		return SubmitResult{Message: denied}, nil
	}

	scope := organizations.Scope{Type: sub.OrgType, ChapterID: sub.ChapterID, TeamID: sub.TeamID}
	costCenter, err := s.orgs.ResolveCostCenter(ctx, scope)
	if err != nil {
		return SubmitResult{Message: "No cost center could be resolved for this organization"}, err
	}

	category, err := s.orgs.EnsureCategory(ctx, sub.Category)
	if err != nil {
		return SubmitResult{Message: "Expense category could not be resolved"}, err
	}

	employeeID, err := s.vols.EnsureEmployee(ctx, vol.ID)
	if err != nil {
		return SubmitResult{Message: "Employee record could not be provisioned"}, err
	}

	approvers, err := s.orgs.ApproverEmailsForAmount(ctx, scope, sub.Amount)
	if err != nil {
		s.logger.Warn("resolve approvers", slog.Any("error", err))
	}
	approverEmail := ""
	if len(approvers) > 0 {
		approverEmail = approvers[0]
	}

	// The claim stays in draft until an approver acts on it.
	claim, err := s.repo.CreateClaim(ctx, CreateClaimInput{
		EmployeeID:    employeeID,
		CostCenterID:  costCenter.ID,
		CategoryID:    category.ID,
		Description:   sub.Description,
		Amount:        sub.Amount,
		ExpenseDate:   sub.ExpenseDate,
		ApproverEmail: approverEmail,
	})
	if err != nil {
		return SubmitResult{Message: "Expense claim could not be created"}, err
	}

	exp, err := s.repo.CreateExpense(ctx, CreateExpenseInput{
		VolunteerID: vol.ID,
		ClaimID:     &claim.ID,
		OrgType:     sub.OrgType,
		ChapterID:   sub.ChapterID,
		TeamID:      sub.TeamID,
		CategoryID:  category.ID,
		Description: sub.Description,
		Amount:      sub.Amount,
		ExpenseDate: sub.ExpenseDate,
		Notes:       sub.Notes,
	})
	if err != nil {
		// The claim already exists at this point and is intentionally kept.
		s.logger.Error("create tracking record", slog.Any("error", err), slog.String("claim_id", claim.ID.String()))
		return SubmitResult{Message: "Expense tracking record could not be created", ClaimID: claim.ID.String()}, err
	}
	exp.CategoryName = category.Name

	if sub.Receipt != nil {
		if err := s.repo.AddAttachment(ctx, exp.ID, *sub.Receipt); err != nil {
			// Attachment failures never fail the submission.
			s.logger.Warn("attach receipt", slog.Any("error", err), slog.String("expense_id", exp.ID.String()))
		} else {
			exp.AttachmentCount = 1
		}
	}

	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		ExpenseID:  exp.ID,
		ActorEmail: actorEmail,
		Action:     shared.ApprovalSubmit,
		Note:       sub.Notes,
	}); err != nil {
		s.logger.Warn("record submit approval", slog.Any("error", err))
	}

	// Team expenses above the lead limit bypass the team leaders and land on
	// the chapter board, which counts as an escalation.
	escalated := sub.OrgType == organizations.OrgTypeTeam && sub.Amount > organizations.TeamLeadApprovalLimit
	if escalated {
		if err := s.approvals.Record(ctx, shared.ApprovalLog{
			ExpenseID:  exp.ID,
			ActorEmail: actorEmail,
			Action:     shared.ApprovalEscalate,
			Note:       "amount above team lead approval limit",
		}); err != nil {
			s.logger.Warn("record escalation", slog.Any("error", err))
		}
	}

	if s.notifier != nil && len(approvers) > 0 {
		if escalated {
			if err := s.notifier.ExpenseEscalated(ctx, exp, vol.Name, approvers); err != nil {
				s.logger.Warn("notify escalation approvers", slog.Any("error", err))
			}
		} else if err := s.notifier.ExpenseSubmitted(ctx, exp, vol.Name, approvers); err != nil {
			s.logger.Warn("notify approvers", slog.Any("error", err))
		}
	}

	return SubmitResult{
		Success:   true,
		Message:   "Expense submitted successfully and sent for approval",
		ClaimID:   claim.ID.String(),
		ExpenseID: exp.ID.String(),
	}, nil
}

// SubmitBatch submits up to MaxBatchItems expenses, allowing partial success.
func (s *Service) SubmitBatch(ctx context.Context, actorEmail string, subs []Submission) (BatchResult, error) {
	if len(subs) == 0 {
		return BatchResult{Message: "No expenses provided"}, nil
	}
	if len(subs) > MaxBatchItems {
		return BatchResult{Message: fmt.Sprintf("Cannot submit more than %d expenses at once", MaxBatchItems)}, nil
	}
	var total float64
	for i, sub := range subs {
		if sub.Amount > MaxLineAmount {
			return BatchResult{Message: fmt.Sprintf("Line %d: Amount cannot exceed €5,000 per expense", i+1)}, nil
		}
		total += sub.Amount
	}
	if total > MaxBatchTotal {
		return BatchResult{Message: "Batch total cannot exceed €10,000"}, nil
	}

	result := BatchResult{Results: make([]SubmitResult, 0, len(subs))}
	for _, sub := range subs {
		lineResult, err := s.Submit(ctx, actorEmail, sub)
		if err != nil {
			s.logger.Error("batch line submit", slog.Any("error", err))
		}
		if lineResult.Success {
			result.Submitted++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, lineResult)
	}
	result.Success = result.Failed == 0
	result.Message = fmt.Sprintf("Submitted %d of %d expenses", result.Submitted, len(subs))
	return result, nil
}

// List returns the volunteer's expenses with near-duplicates collapsed.
// Rows sharing description, amount and expense date are folded into one,
// preferring the row that carries a claim link.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int)
	out := make([]Expense, 0, len(rows))
	for _, exp := range rows {
		key := fmt.Sprintf("%s|%.2f|%s", exp.Description, exp.Amount, exp.ExpenseDate.Format("2006-01-02"))
		if idx, ok := seen[key]; ok {
			if out[idx].ClaimID == nil && exp.ClaimID != nil {
				out[idx] = exp
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, exp)
	}
	return out, nil
}

// ListForVolunteerEmail resolves the acting volunteer and lists their expenses.
func (s *Service) ListForVolunteerEmail(ctx context.Context, email string) ([]Expense, error) {
	vol, err := s.vols.ByUserEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, ListFilter{VolunteerID: vol.ID})
}

// Get returns one expense by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// Details returns one expense when the actor may see it. Visibility covers
// the submitting volunteer, eligible approvers, and administrators.
func (s *Service) Details(ctx context.Context, actorEmail string, id uuid.UUID) (Expense, error) {
	exp, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if vol, err := s.vols.ByUserEmail(ctx, actorEmail); err == nil && vol.ID == exp.VolunteerID {
		return exp, nil
	}
	allowed, err := s.CanApprove(ctx, actorEmail, exp)
	if err != nil {
		return Expense{}, err
	}
	if !allowed {
		return Expense{}, ErrNotAuthorized
	}
	return exp, nil
}

// CanApprove reports whether the actor may decide on the expense.
func (s *Service) CanApprove(ctx context.Context, actorEmail string, exp Expense) (bool, error) {
	if s.admins != nil {
		isAdmin, err := s.admins.IsAdmin(ctx, actorEmail)
		if err != nil {
			return false, err
		}
		if isAdmin {
			return true, nil
		}
	}
	actor, err := s.vols.ByUserEmail(ctx, actorEmail)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			return false, nil
		}
		return false, err
	}
	switch exp.OrgType {
	case organizations.OrgTypeChapter:
		if exp.ChapterID == nil {
			return false, nil
		}
		return s.orgs.VolunteerOnChapterBoard(ctx, actor.ID, *exp.ChapterID)
	case organizations.OrgTypeTeam:
		if exp.TeamID == nil {
			return false, nil
		}
		team, err := s.orgs.GetTeam(ctx, *exp.TeamID)
		if err != nil {
			return false, err
		}
		// Team leaders sign off small amounts only; larger ones need the board.
		if exp.Amount <= organizations.TeamLeadApprovalLimit {
			leads, err := s.teamLead(ctx, actor.ID, team)
			if err != nil || leads {
				return leads, err
			}
		}
		if team.ChapterID == nil {
			return false, nil
		}
		return s.orgs.VolunteerOnChapterBoard(ctx, actor.ID, *team.ChapterID)
	case organizations.OrgTypeNational:
		return s.orgs.VolunteerOnNationalBoard(ctx, actor.ID)
	}
	return false, nil
}

func (s *Service) teamLead(ctx context.Context, volunteerID int64, team organizations.Team) (bool, error) {
	// Team leaders approve their own team's expenses.
	active, err := s.orgs.VolunteerActiveInTeam(ctx, volunteerID, team.ID)
	if err != nil || !active {
		return false, err
	}
	leads, err := s.orgs.ApproverEmails(ctx, organizations.Scope{Type: organizations.OrgTypeTeam, TeamID: &team.ID})
	if err != nil {
		return false, err
	}
	vol, err := s.vols.Get(ctx, volunteerID)
	if err != nil {
		return false, err
	}
	for _, email := range leads {
		if strings.EqualFold(email, vol.Email) {
			return true, nil
		}
	}
	return false, nil
}

// Approve transitions a submitted expense to approved and updates the claim.
func (s *Service) Approve(ctx context.Context, actorEmail string, expenseID uuid.UUID, note string) error {
	return s.decide(ctx, actorEmail, expenseID, note, true)
}

// Reject transitions a submitted expense to rejected and updates the claim.
func (s *Service) Reject(ctx context.Context, actorEmail string, expenseID uuid.UUID, note string) error {
	return s.decide(ctx, actorEmail, expenseID, note, false)
}

func (s *Service) decide(ctx context.Context, actorEmail string, expenseID uuid.UUID, note string, approve bool) error {
	exp, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if exp.Status != StatusSubmitted {
		return ErrInvalidStatus
	}
	allowed, err := s.CanApprove(ctx, actorEmail, exp)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAuthorized
	}

	status := StatusApproved
	claimApproval := ClaimApprovalApproved
	action := shared.ApprovalApprove
	if !approve {
		status = StatusRejected
		claimApproval = ClaimApprovalRejected
		action = shared.ApprovalReject
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateExpenseStatus(ctx, exp.ID, status); err != nil {
			return err
		}
		if exp.ClaimID != nil {
			return tx.SetClaimApproval(ctx, *exp.ClaimID, claimApproval, actorEmail)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		ExpenseID:  exp.ID,
		ActorEmail: actorEmail,
		Action:     action,
		Note:       note,
	}); err != nil {
		s.logger.Warn("record decision", slog.Any("error", err))
	}

	if s.notifier != nil {
		vol, err := s.vols.Get(ctx, exp.VolunteerID)
		if err != nil {
			s.logger.Warn("resolve submitter for notification", slog.Any("error", err))
			return nil
		}
		exp.Status = status
		if approve {
			err = s.notifier.ExpenseApproved(ctx, exp, vol.Name, vol.Email)
		} else {
			err = s.notifier.ExpenseRejected(ctx, exp, vol.Name, vol.Email, note)
		}
		if err != nil {
			s.logger.Warn("notify submitter", slog.Any("error", err))
		}
	}
	return nil
}

// MarkReimbursed flags an approved expense as paid out.
func (s *Service) MarkReimbursed(ctx context.Context, actorEmail string, expenseID uuid.UUID) error {
	exp, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if exp.Status != StatusApproved {
		return ErrInvalidStatus
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateExpenseStatus(ctx, exp.ID, StatusReimbursed); err != nil {
			return err
		}
		if exp.ClaimID != nil {
			return tx.MarkClaimPaid(ctx, *exp.ClaimID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		ExpenseID:  exp.ID,
		ActorEmail: actorEmail,
		Action:     shared.ApprovalReimburse,
	}); err != nil {
		s.logger.Warn("record reimbursement", slog.Any("error", err))
	}
	return nil
}

// SyncFromClaim re-derives the tracking status from the linked claim's state.
func (s *Service) SyncFromClaim(ctx context.Context, claimID uuid.UUID) error {
	claim, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	exp, err := s.repo.FindByClaim(ctx, claimID)
	if err != nil {
		return err
	}
	status := MapClaimStatus(claim.DocStatus, claim.ApprovalStatus, claim.IsPaid)
	if status == exp.Status {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateExpenseStatus(ctx, exp.ID, status)
	})
}

// PendingReminder bundles everything a reminder email needs for one
// expense that has been awaiting a decision for too long.
type PendingReminder struct {
	Expense       Expense
	VolunteerName string
	Approvers     []string
	DaysPending   int
}

// PendingReminders collects submitted expenses that have been waiting
// longer than the given duration, with their approvers resolved.
func (s *Service) PendingReminders(ctx context.Context, olderThan time.Duration) ([]PendingReminder, error) {
	now := time.Now()
	rows, err := s.repo.ListPendingOlderThan(ctx, now.Add(-olderThan))
	if err != nil {
		return nil, err
	}
	reminders := make([]PendingReminder, 0, len(rows))
	for _, exp := range rows {
		vol, err := s.vols.Get(ctx, exp.VolunteerID)
		if err != nil {
			s.logger.Warn("resolve volunteer for reminder", slog.Any("error", err), slog.String("expense_id", exp.ID.String()))
			continue
		}
		scope := organizations.Scope{Type: exp.OrgType, ChapterID: exp.ChapterID, TeamID: exp.TeamID}
		approvers, err := s.orgs.ApproverEmailsForAmount(ctx, scope, exp.Amount)
		if err != nil {
			s.logger.Warn("resolve approvers for reminder", slog.Any("error", err), slog.String("expense_id", exp.ID.String()))
			continue
		}
		if len(approvers) == 0 {
			continue
		}
		reminders = append(reminders, PendingReminder{
			Expense:       exp,
			VolunteerName: vol.Name,
			Approvers:     approvers,
			DaysPending:   int(now.Sub(exp.CreatedAt).Hours() / 24),
		})
	}
	return reminders, nil
}

// StatisticsForEmail aggregates the acting volunteer's trailing 12 months.
func (s *Service) StatisticsForEmail(ctx context.Context, email string) (Statistics, error) {
	vol, err := s.vols.ByUserEmail(ctx, email)
	if err != nil {
		return Statistics{}, err
	}
	return s.repo.Statistics(ctx, vol.ID, time.Now().AddDate(-1, 0, 0))
}

// FormContext bootstraps the submission form for the acting volunteer.
type FormContext struct {
	VolunteerID   int64                           `json:"volunteer_id"`
	VolunteerName string                          `json:"volunteer_name"`
	Chapters      []organizations.Chapter         `json:"chapters"`
	Teams         []organizations.Team            `json:"teams"`
	Categories    []organizations.ExpenseCategory `json:"categories"`
	MaxAmount     float64                         `json:"max_amount"`
}

// OrganizationOption is one selectable scope target for the submission form.
type OrganizationOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OrganizationOptions lists the scope targets the acting volunteer may book
// against for one organization type. National needs no selection and yields
// an empty list.
func (s *Service) OrganizationOptions(ctx context.Context, email string, orgType organizations.OrgType) ([]OrganizationOption, error) {
	vol, err := s.vols.ByUserEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	switch orgType {
	case organizations.OrgTypeChapter:
		if vol.MemberID == nil {
			return []OrganizationOption{}, nil
		}
		chapters, err := s.orgs.ListChaptersForMember(ctx, *vol.MemberID)
		if err != nil {
			return nil, err
		}
		options := make([]OrganizationOption, 0, len(chapters))
		for _, c := range chapters {
			options = append(options, OrganizationOption{ID: c.ID, Name: c.Name})
		}
		return options, nil
	case organizations.OrgTypeTeam:
		teams, err := s.orgs.ListTeamsForVolunteer(ctx, vol.ID)
		if err != nil {
			return nil, err
		}
		options := make([]OrganizationOption, 0, len(teams))
		for _, t := range teams {
			options = append(options, OrganizationOption{ID: t.ID, Name: t.Name})
		}
		return options, nil
	case organizations.OrgTypeNational:
		return []OrganizationOption{}, nil
	}
	return nil, organizations.ErrInvalidScope
}

// Context resolves the submission form context for the acting volunteer.
func (s *Service) Context(ctx context.Context, email string) (FormContext, error) {
	vol, err := s.vols.ByUserEmail(ctx, email)
	if err != nil {
		return FormContext{}, err
	}
	fc := FormContext{VolunteerID: vol.ID, VolunteerName: vol.Name, MaxAmount: MaxLineAmount}
	if vol.MemberID != nil {
		chapters, err := s.orgs.ListChaptersForMember(ctx, *vol.MemberID)
		if err != nil {
			return FormContext{}, err
		}
		fc.Chapters = chapters
	}
	teams, err := s.orgs.ListTeamsForVolunteer(ctx, vol.ID)
	if err != nil {
		return FormContext{}, err
	}
	fc.Teams = teams
	categories, err := s.orgs.ListCategories(ctx)
	if err != nil {
		return FormContext{}, err
	}
	fc.Categories = categories
	return fc, nil
}
