package reporting

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/declaro-app/declaro/internal/platform/httpx"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/report"
)

// Handler serves the expense report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pdf     *report.Client
}

// NewHandler constructs a Handler instance. pdf may be nil when no
// Gotenberg instance is configured.
func NewHandler(logger *slog.Logger, service *Service, pdf *report.Client) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/chapter-expenses", h.chapterExpenses)
	r.Get("/chapter-expenses/pdf", h.chapterExpensesPDF)
}

func parseFilter(r *http.Request) Filter {
	var filter Filter
	q := r.URL.Query()
	if raw := q.Get("date_from"); raw != "" {
		if ts, err := time.Parse(time.DateOnly, raw); err == nil {
			filter.DateFrom = ts
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if ts, err := time.Parse(time.DateOnly, raw); err == nil {
			filter.DateTo = ts
		}
	}
	if raw := q.Get("chapter_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ChapterID = &id
		}
	}
	filter.OrgType = q.Get("org_type")
	filter.Status = q.Get("status")
	return filter
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Get("email") == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return false
	}
	return true
}

func (h *Handler) chapterExpenses(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	filter := parseFilter(r)

	var (
		rows    []Row
		summary Summary
	)
	group, ctx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		var err error
		rows, err = h.service.Rows(ctx, filter)
		return err
	})
	group.Go(func() error {
		var err error
		summary, err = h.service.Summary(ctx, filter)
		return err
	})
	if err := group.Wait(); err != nil {
		h.logger.Error("build expense report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not build report")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"columns": Columns(),
		"data":    rows,
		"summary": summary,
		"chart":   summary.PerOrganization,
	})
}

func (h *Handler) chapterExpensesPDF(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "PDF rendering is not configured")
		return
	}
	filter := parseFilter(r)

	rows, err := h.service.Rows(r.Context(), filter)
	if err != nil {
		h.logger.Error("build expense report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not build report")
		return
	}
	summary, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		h.logger.Error("summarize expense report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not build report")
		return
	}

	html, err := RenderHTML(rows, summary, time.Now())
	if err != nil {
		h.logger.Error("render report html", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not render report")
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render report pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "PDF rendering failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="chapter-expenses.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
