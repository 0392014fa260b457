package organizations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/declaro-app/declaro/internal/platform/httpx"
	"github.com/declaro-app/declaro/internal/shared"
)

// AdminDirectory answers whether an account may manage master data.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// Handler exposes organization lookups over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	admins    AdminDirectory
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, admins AdminDirectory) *Handler {
	return &Handler{logger: logger, service: service, admins: admins, validator: validator.New()}
}

// MountRoutes registers organization routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/chapters", h.listChapters)
	r.Get("/chapters/{id}/board", h.listBoard)
	r.Get("/teams", h.listTeams)
	r.Get("/categories", h.listCategories)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/chapters", h.createChapter)
		r.Post("/teams", h.createTeam)
		r.Post("/categories", h.createCategory)
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Get("email") == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if h.admins == nil {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		isAdmin, err := h.admins.IsAdmin(r.Context(), sess.Get("email"))
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

func (h *Handler) listChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.service.ListChapters(r.Context())
	if err != nil {
		h.logger.Error("list chapters", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"chapters": chapters})
}

func (h *Handler) listBoard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid chapter id", httpx.ErrValidation))
		return
	}
	members, err := h.service.ListBoardMembers(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrChapterNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("list board members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"board_members": members})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context())
	if err != nil {
		h.logger.Error("list teams", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"teams": teams})
}

type createChapterRequest struct {
	Name         string `json:"name" validate:"required,max=140"`
	CostCenterID *int64 `json:"cost_center_id"`
	Published    bool   `json:"published"`
}

func (h *Handler) createChapter(w http.ResponseWriter, r *http.Request) {
	var req createChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	chapter, err := h.service.CreateChapter(r.Context(), CreateChapterInput{
		Name:         req.Name,
		CostCenterID: req.CostCenterID,
		Published:    req.Published,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidScope) || errors.Is(err, ErrCostCenterNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("create chapter", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, chapter)
}

type createTeamRequest struct {
	Name         string `json:"name" validate:"required,max=140"`
	ChapterID    *int64 `json:"chapter_id"`
	CostCenterID *int64 `json:"cost_center_id"`
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	team, err := h.service.CreateTeam(r.Context(), CreateTeamInput{
		Name:         req.Name,
		ChapterID:    req.ChapterID,
		CostCenterID: req.CostCenterID,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidScope) || errors.Is(err, ErrChapterNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("create team", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, team)
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=140"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	category, err := h.service.EnsureCategory(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}
