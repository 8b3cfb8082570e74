package access

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler wires role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes. Every route is gated on the
// accessManagement module through the authorization gate itself.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModuleAccessManagement, CapabilityView))
		r.Get("/", h.listRoles)
		r.Get("/template", h.permissionTemplate)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModuleAccessManagement, CapabilityCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModuleAccessManagement, CapabilityEdit))
		r.Put("/{id}", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModuleAccessManagement, CapabilityDelete))
		r.Delete("/{id}", h.deleteRole)
	})
}

type permissionPayload struct {
	Module    string `json:"module" validate:"required"`
	CanView   bool   `json:"canView"`
	CanCreate bool   `json:"canCreate"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
}

type rolePayload struct {
	Name        string              `json:"name" validate:"required,min=2,max=64"`
	Description string              `json:"description" validate:"max=255"`
	Permissions []permissionPayload `json:"permissions" validate:"omitempty,dive"`
}

type roleResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	System      bool                `json:"system"`
	Permissions []permissionPayload `json:"permissions"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

// permissionTemplate returns the fresh-role template: everything off
// except dashboard view. Pure read, no store side effect.
func (h *Handler) permissionTemplate(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, toPermissionPayloads(DefaultTemplate()))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	perms, err := fromPermissionPayloads(payload.Permissions)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"permissions": err.Error()})
		return
	}
	role, err := h.service.CreateRole(r.Context(), ActorFromContext(r.Context()), CreateRoleInput{
		Name:        payload.Name,
		Description: payload.Description,
		Permissions: perms,
	})
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	perms, err := fromPermissionPayloads(payload.Permissions)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"permissions": err.Error()})
		return
	}
	role, err := h.service.UpdateRole(r.Context(), ActorFromContext(r.Context()), Role{
		ID:          chi.URLParam(r, "id"),
		Name:        payload.Name,
		Description: payload.Description,
		Permissions: perms,
	})
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeRole(w http.ResponseWriter, r *http.Request) (rolePayload, bool) {
	var payload rolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON payload")
		return rolePayload{}, false
	}
	if err := h.validator.Struct(payload); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return rolePayload{}, false
	}
	return payload, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.ValidationProblem(w, map[string]string{"name": "role name already exists"})
	case errors.Is(err, ErrImmutableRole):
		httpx.Problem(w, http.StatusForbidden, "Immutable Role", "system roles cannot be renamed, re-permissioned or deleted")
	case errors.Is(err, ErrInvariantViolation):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Permissions", err.Error())
	case errors.Is(err, ErrAuditWrite):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Audit Write Failed", "the change was rolled back because its audit entry could not be written")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		System:      role.IsSystem(),
		Permissions: toPermissionPayloads(role.Permissions),
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func toPermissionPayloads(sets []PermissionSet) []permissionPayload {
	out := make([]permissionPayload, 0, len(sets))
	for _, p := range sets {
		out = append(out, permissionPayload{
			Module:    string(p.Module),
			CanView:   p.CanView,
			CanCreate: p.CanCreate,
			CanEdit:   p.CanEdit,
			CanDelete: p.CanDelete,
		})
	}
	return out
}

func fromPermissionPayloads(payloads []permissionPayload) ([]PermissionSet, error) {
	sets := make([]PermissionSet, 0, len(payloads))
	for _, p := range payloads {
		module, err := ParseModule(p.Module)
		if err != nil {
			return nil, err
		}
		sets = append(sets, PermissionSet{
			Module:    module,
			CanView:   p.CanView,
			CanCreate: p.CanCreate,
			CanEdit:   p.CanEdit,
			CanDelete: p.CanDelete,
		})
	}
	return sets, nil
}
