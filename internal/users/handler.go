package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/declaro-app/declaro/internal/platform/httpx"
	"github.com/declaro-app/declaro/internal/shared"
)

// Handler manages user management endpoints. All routes require an
// administrator account.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/", h.listUsers)
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Get("email") == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		isAdmin, err := h.service.IsAdmin(r.Context(), sess.Get("email"))
		if err != nil {
			h.logger.Error("admin check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not verify permissions")
			return
		}
		if !isAdmin {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not list users")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, len(list))
	start := (pagination.Page - 1) * pagination.PerPage
	if start > len(list) {
		start = len(list)
	}
	end := start + pagination.PerPage
	if end > len(list) {
		end = len(list)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list[start:end], "pagination": pagination})
}
