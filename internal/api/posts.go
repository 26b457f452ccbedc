package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-cms/inkgate/internal/gate"
	"github.com/inkwell-cms/inkgate/internal/server"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

type PostsHandler struct {
	store  storage.PostStore
	logger *slog.Logger
}

func NewPostsHandler(store storage.PostStore, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{store: store, logger: logger}
}

func (h *PostsHandler) Mount(r chi.Router) {
	r.Get("/api/posts", h.List)
	r.Post("/api/posts", h.Create)
	r.Get("/api/posts/{id}", h.Get)
	r.Put("/api/posts/{id}", h.Update)
	r.Delete("/api/posts/{id}", h.Delete)
}

func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{Status: r.URL.Query().Get("status")}

	posts, err := h.store.ListPosts(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}
	if posts == nil {
		posts = []*storage.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type postRequest struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "title and slug are required")
		return
	}

	post := &storage.Post{
		Title:   req.Title,
		Slug:    req.Slug,
		Content: req.Content,
		Status:  req.Status,
	}
	if id := gate.IdentityFrom(r.Context()); id != nil {
		post.AuthorID = id.UserID
	}

	if err := h.store.CreatePost(r.Context(), post); err != nil {
		server.AddError(r.Context(), err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !readJSON(w, r, &req) {
		return
	}

	post := &storage.Post{
		ID:      chi.URLParam(r, "id"),
		Title:   req.Title,
		Slug:    req.Slug,
		Content: req.Content,
		Status:  req.Status,
	}
	if err := h.store.UpdatePost(r.Context(), post); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
