package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-cms/inkgate/internal/server"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

// EndpointsHandler exposes the gate's stored configuration read-only so
// operators can inspect which routes are gated and how.
type EndpointsHandler struct {
	store  storage.EndpointStore
	logger *slog.Logger
}

func NewEndpointsHandler(store storage.EndpointStore, logger *slog.Logger) *EndpointsHandler {
	return &EndpointsHandler{store: store, logger: logger}
}

func (h *EndpointsHandler) Mount(r chi.Router) {
	r.Get("/api/endpoints", h.List)
}

func (h *EndpointsHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.store.ListEndpoints(r.Context())
	if err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": endpoints})
}
