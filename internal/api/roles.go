package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-cms/inkgate/internal/server"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

type RolesHandler struct {
	store  storage.RoleStore
	logger *slog.Logger
}

func NewRolesHandler(store storage.RoleStore, logger *slog.Logger) *RolesHandler {
	return &RolesHandler{store: store, logger: logger}
}

func (h *RolesHandler) Mount(r chi.Router) {
	r.Get("/api/roles", h.List)
	r.Post("/api/roles/create", h.Create)
	r.Put("/api/roles/update", h.Update)
	r.Delete("/api/roles/delete", h.Delete)
	r.Post("/api/users/update-role", h.UpdateUserRole)
}

func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	role, err := h.store.CreateRole(r.Context(), req.Name)
	if err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *RolesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.store.UpdateRole(r.Context(), req.ID, req.Name); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *RolesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.store.DeleteRole(r.Context(), req.ID); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// UpdateUserRole grants the given role to a user. Assignments are
// additive; use the role endpoints to remove grants.
func (h *RolesHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		RoleID string `json:"role_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "user_id and role_id are required")
		return
	}

	if err := h.store.AssignRole(r.Context(), req.UserID, req.RoleID); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"assigned": true})
}
