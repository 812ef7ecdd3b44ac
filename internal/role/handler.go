package role

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/platform/httpx"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// AuthzMiddleware gates routes on a channel-scoped permission. The authz
// package's Middleware satisfies it.
type AuthzMiddleware interface {
	Require(p permission.Permission) func(http.Handler) http.Handler
}

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     AuthzMiddleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw AuthzMiddleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(h.authz.Require(permission.ReadAdministrator))
		gr.Get("/", h.listRoles)
		gr.Get("/{id}", h.getRole)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		// Create authorizes inside the service against the target
		// channel, which may differ from the active one.
		gr.Post("/", h.createRole)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Use(h.authz.Require(permission.UpdateAdministrator))
		gr.Patch("/{id}", h.updateRole)
		gr.Post("/{id}/channels/{channelID}", h.assignChannel)
	})
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	ChannelIDs  []int64   `json:"channelIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type roleListResponse struct {
	Items      []roleResponse    `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

type createRoleRequest struct {
	Code        string   `json:"code" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions"`
	ChannelID   int64    `json:"channelId"`
}

type updateRoleRequest struct {
	Code        *string  `json:"code" validate:"omitempty,min=2,max=64"`
	Description *string  `json:"description" validate:"omitempty,max=255"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	filters := ListFilters{
		Code:    q.Get("code"),
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
		Page:    page,
		PerPage: perPage,
	}
	roles, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]roleResponse, len(roles))
	for i := range roles {
		items[i] = toRoleResponse(&roles[i])
	}
	httpx.JSON(w, http.StatusOK, roleListResponse{
		Items:      items,
		Pagination: shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perms, err := permission.ParseAll(req.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), CreateRoleInput{
		Code:        req.Code,
		Description: req.Description,
		Permissions: perms,
		ChannelID:   req.ChannelID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, toRoleResponse(created))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateRoleInput{ID: id, Code: req.Code, Description: req.Description}
	if req.Permissions != nil {
		perms, err := permission.ParseAll(req.Permissions)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Permissions = perms
	}
	updated, err := h.service.Update(r.Context(), input)
	if err != nil {
		if errors.Is(err, shared.ErrInternal) {
			h.logger.Error("update role", slog.Int64("role_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(updated))
}

func (h *Handler) assignChannel(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	channelID, err := pathID(r, "channelID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.AssignRoleToChannel(r.Context(), roleID, channelID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func toRoleResponse(r *Role) roleResponse {
	channelIDs := make([]int64, len(r.Channels))
	for i, ch := range r.Channels {
		channelIDs[i] = ch.ID
	}
	return roleResponse{
		ID:          r.ID,
		Code:        r.Code,
		Description: r.Description,
		Permissions: permission.Strings(r.Permissions),
		ChannelIDs:  channelIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &shared.ValidationError{Field: name, Value: raw}
	}
	return id, nil
}

func rateLimitKey(r *http.Request) (string, error) {
	if rc := shared.RequestFromContext(r.Context()); rc.Authenticated() {
		return "user:" + strconv.FormatInt(rc.ActiveUserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
