package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkwell-cms/inkgate/internal/auth"
	"github.com/inkwell-cms/inkgate/internal/gate"
	"github.com/inkwell-cms/inkgate/internal/server"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

// TokenPrefix marks minted API tokens so leaked ones are recognizable in
// scanners and logs.
const TokenPrefix = "ink_"

type TokensHandler struct {
	store  storage.TokenStore
	logger *slog.Logger
}

func NewTokensHandler(store storage.TokenStore, logger *slog.Logger) *TokensHandler {
	return &TokensHandler{store: store, logger: logger}
}

func (h *TokensHandler) Mount(r chi.Router) {
	r.Get("/api/tokens", h.List)
	r.Post("/api/tokens", h.Create)
	r.Delete("/api/tokens/{id}", h.Revoke)
}

func (h *TokensHandler) List(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFrom(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tokens, err := h.store.ListTokens(r.Context(), id.UserID)
	if err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}

	// The hash never leaves the server.
	out := make([]map[string]any, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, map[string]any{
			"id":          t.ID,
			"name":        t.Name,
			"description": t.Description,
			"status":      t.Status,
			"expires_at":  t.ExpiresAt,
			"created_at":  t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

// Create mints a token and returns the raw material exactly once.
func (h *TokensHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFrom(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		// ExpiresInDays of 0 means the token never expires.
		ExpiresInDays int `json:"expires_in_days"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	raw := TokenPrefix + uuid.New().String()
	token := &storage.Token{
		UserID:      id.UserID,
		Name:        req.Name,
		Description: req.Description,
		TokenHash:   auth.HashToken(raw),
		Status:      storage.TokenActive,
	}
	if req.ExpiresInDays > 0 {
		expiry := time.Now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		token.ExpiresAt = &expiry
	}

	if err := h.store.CreateToken(r.Context(), token); err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         token.ID,
		"name":       token.Name,
		"token":      raw,
		"expires_at": token.ExpiresAt,
	})
}

func (h *TokensHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if gate.IdentityFrom(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.store.RevokeToken(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}
