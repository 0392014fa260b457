package expenses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/platform/httpx"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/volunteers"
)

// Handler wires HTTP endpoints for expense submission and approval.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	approvals *shared.ApprovalRecorder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, approvals *shared.ApprovalRecorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		approvals: approvals,
		validator: validator.New(),
	}
}

// MountRoutes registers expense routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Post("/batch", h.submitBatch)
	r.Get("/", h.list)
	r.Get("/context", h.formContext)
	r.Get("/options", h.organizationOptions)
	r.Get("/statistics", h.statistics)
	r.Get("/{id}", h.details)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/reimburse", h.reimburse)
	r.Get("/{id}/approvals", h.approvalTrail)
}

func actorEmail(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.Get("email")
}

type submissionRequest struct {
	Description      string  `json:"description" validate:"required"`
	Amount           float64 `json:"amount" validate:"required"`
	ExpenseDate      string  `json:"expense_date" validate:"required"`
	OrganizationType string  `json:"organization_type" validate:"required"`
	ChapterID        *int64  `json:"chapter_id"`
	TeamID           *int64  `json:"team_id"`
	Category         string  `json:"category" validate:"required"`
	Notes            string  `json:"notes"`
}

func (req submissionRequest) toSubmission(receipt *Receipt) Submission {
	date, _ := time.Parse("2006-01-02", req.ExpenseDate)
	return Submission{
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: date,
		OrgType:     organizations.OrgType(req.OrganizationType),
		ChapterID:   req.ChapterID,
		TeamID:      req.TeamID,
		Category:    req.Category,
		Notes:       req.Notes,
		Receipt:     receipt,
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var sub Submission
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := h.parseMultipartSubmission(r)
		if err != nil {
			httpx.JSON(w, http.StatusOK, SubmitResult{Message: err.Error()})
			return
		}
		sub = parsed
	} else {
		var req submissionRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid request body", httpx.ErrValidation))
			return
		}
		sub = req.toSubmission(nil)
	}

	result, err := h.service.Submit(r.Context(), email, sub)
	if err != nil {
		h.logger.Error("submit expense", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseMultipartSubmission(r *http.Request) (Submission, error) {
	if err := r.ParseMultipartForm(MaxReceiptBytes + 1<<20); err != nil {
		return Submission{}, errors.New("Could not parse submission form")
	}
	amount, _ := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	req := submissionRequest{
		Description:      r.PostFormValue("description"),
		Amount:           amount,
		ExpenseDate:      r.PostFormValue("expense_date"),
		OrganizationType: r.PostFormValue("organization_type"),
		Category:         r.PostFormValue("category"),
		Notes:            r.PostFormValue("notes"),
	}
	if v := r.PostFormValue("chapter_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ChapterID = &id
		}
	}
	if v := r.PostFormValue("team_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.TeamID = &id
		}
	}
	receipt, err := readReceipt(r)
	if err != nil {
		return Submission{}, err
	}
	return req.toSubmission(receipt), nil
}

func readReceipt(r *http.Request) (*Receipt, error) {
	file, header, err := r.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.New("Could not read receipt upload")
	}
	defer func() {
		_ = file.Close()
	}()
	content, err := readAllLimited(file, MaxReceiptBytes+1)
	if err != nil {
		return nil, errors.New("Could not read receipt upload")
	}
	return &Receipt{FileName: header.Filename, Content: content}, nil
}

func readAllLimited(file multipart.File, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(file, limit))
}

type batchRequest struct {
	Expenses []submissionRequest `json:"expenses" validate:"required"`
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: expenses are required", httpx.ErrValidation))
		return
	}
	subs := make([]Submission, 0, len(req.Expenses))
	for _, line := range req.Expenses {
		subs = append(subs, line.toSubmission(nil))
	}
	result, err := h.service.SubmitBatch(r.Context(), email, subs)
	if err != nil {
		h.logger.Error("submit batch", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	rows, err := h.service.ListForVolunteerEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type expenseView struct {
		Expense
		DisplayStatus string `json:"display_status"`
	}
	views := make([]expenseView, 0, len(rows))
	for _, exp := range rows {
		views = append(views, expenseView{Expense: exp, DisplayStatus: exp.Status.Display()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": views})
}

func (h *Handler) formContext(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	fc, err := h.service.Context(r.Context(), email)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("expense context", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fc)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	stats, err := h.service.StatisticsForEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("expense statistics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation))
		return
	}
	exp, err := h.service.Details(r.Context(), email, id)
	if err != nil {
		h.respondDecisionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"expense":        exp,
		"display_status": exp.Status.Display(),
	})
}

func (h *Handler) organizationOptions(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	orgType := organizations.OrgType(r.URL.Query().Get("type"))
	if !orgType.Valid() {
		httpx.RespondError(w, fmt.Errorf("%w: unknown organization type", httpx.ErrValidation))
		return
	}
	options, err := h.service.OrganizationOptions(r.Context(), email, orgType)
	if err != nil {
		if errors.Is(err, volunteers.ErrVolunteerNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("organization options", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"options": options})
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorEmail string, expenseID uuid.UUID, note string) error) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation))
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid request body", httpx.ErrValidation))
			return
		}
	}
	if err := fn(r.Context(), email, id, req.Note); err != nil {
		h.respondDecisionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) reimburse(w http.ResponseWriter, r *http.Request) {
	email := actorEmail(r)
	if email == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation))
		return
	}
	if err := h.service.MarkReimbursed(r.Context(), email, id); err != nil {
		h.respondDecisionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrClaimNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidStatus):
		httpx.RespondError(w, fmt.Errorf("%w: expense is not awaiting this action", httpx.ErrValidation))
	case errors.Is(err, ErrNotAuthorized):
		httpx.RespondError(w, httpx.ErrForbidden)
	default:
		h.logger.Error("expense decision", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) approvalTrail(w http.ResponseWriter, r *http.Request) {
	if actorEmail(r) == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation))
		return
	}
	logs, err := h.approvals.List(r.Context(), id)
	if err != nil {
		h.logger.Error("approval trail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approvals": logs})
}
