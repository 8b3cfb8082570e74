package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler wires user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        access.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw access.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes under the userManagement module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(access.ModuleUserManagement, access.CapabilityView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(access.ModuleUserManagement, access.CapabilityEdit))
		r.Put("/{id}/role", h.assignRole)
		r.Put("/{id}/status", h.setStatus)
	})
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RoleName  string    `json:"roleName"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type assignRolePayload struct {
	RoleName string `json:"roleName" validate:"required"`
	IsActive bool   `json:"isActive"`
}

type statusPayload struct {
	IsActive bool `json:"isActive"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var payload assignRolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON payload")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, map[string]string{"roleName": "required"})
		return
	}
	user, err := h.service.AssignRole(r.Context(), access.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"), payload.RoleName, payload.IsActive)
	if err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON payload")
		return
	}
	user, err := h.service.SetActive(r.Context(), access.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"), payload.IsActive)
	if err != nil {
		h.respondError(w, "set status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, access.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user or role not found")
	case errors.Is(err, access.ErrAuditWrite):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Audit Write Failed", "the change was rolled back because its audit entry could not be written")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		RoleName:  u.RoleName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
