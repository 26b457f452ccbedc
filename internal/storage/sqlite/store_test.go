package sqlite

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkwell-cms/inkgate/internal/domain"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func roleID(t *testing.T, s *Store, name string) string {
	t.Helper()
	roles, err := s.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("role %q not found", name)
	return ""
}

func TestSeedRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	roles, err := s.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 5 {
		t.Fatalf("got %d seeded roles, want 5", len(roles))
	}

	// Each seeded role carries a default budget.
	adminID := roleID(t, s, domain.RoleAdmin)
	if err := s.AssignRole(ctx, "u1", adminID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	limits, err := s.RateLimitsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RateLimitsForUser: %v", err)
	}
	if limits.RequestsPerMinute != 120 {
		t.Errorf("admin RequestsPerMinute = %d, want 120", limits.RequestsPerMinute)
	}
}

func TestSeedIsIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	roles, err := s.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 5 {
		t.Fatalf("after reopen: got %d roles, want 5", len(roles))
	}
}

func TestEndpointRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ep := &domain.Endpoint{
		Path:            "/api/posts/{id}",
		Method:          http.MethodGet,
		IsActive:        true,
		RequiredRoles:   []string{domain.RoleAdmin, domain.RoleEditor},
		CacheStrategy:   domain.CacheInMemory,
		CacheTTLSeconds: 60,
		RateLimitOverride: &domain.RateLimits{
			RequestsPerMinute: 10,
			RequestsPerHour:   100,
			RequestsPerDay:    1000,
		},
	}
	if err := s.CreateEndpoint(ctx, ep); err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}
	if ep.ID == "" {
		t.Fatal("expected generated endpoint ID")
	}

	got, err := s.FindEndpoint(ctx, "/api/posts/{id}", http.MethodGet)
	if err != nil {
		t.Fatalf("FindEndpoint: %v", err)
	}
	if got.ID != ep.ID || !got.IsActive || got.CacheStrategy != domain.CacheInMemory {
		t.Errorf("FindEndpoint returned %+v", got)
	}
	if len(got.RequiredRoles) != 2 || got.RequiredRoles[0] != domain.RoleAdmin {
		t.Errorf("RequiredRoles = %v", got.RequiredRoles)
	}
	if got.RateLimitOverride == nil || got.RateLimitOverride.RequestsPerMinute != 10 {
		t.Errorf("RateLimitOverride = %+v, want per-minute 10", got.RateLimitOverride)
	}

	// Same path, different method misses.
	if _, err := s.FindEndpoint(ctx, "/api/posts/{id}", http.MethodDelete); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindEndpoint wrong method: err = %v, want ErrNotFound", err)
	}
}

func TestEndpointWithoutOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ep := &domain.Endpoint{Path: "/api/posts", Method: http.MethodGet, IsActive: true}
	if err := s.CreateEndpoint(ctx, ep); err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}

	got, err := s.FindEndpoint(ctx, "/api/posts", http.MethodGet)
	if err != nil {
		t.Fatalf("FindEndpoint: %v", err)
	}
	if got.RateLimitOverride != nil {
		t.Errorf("RateLimitOverride = %+v, want nil", got.RateLimitOverride)
	}
	if len(got.RequiredRoles) != 0 {
		t.Errorf("RequiredRoles = %v, want empty", got.RequiredRoles)
	}
}

func TestUpdateEndpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ep := &domain.Endpoint{Path: "/api/search", Method: http.MethodGet, IsActive: true, IsPublic: true}
	if err := s.CreateEndpoint(ctx, ep); err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}

	ep.IsActive = false
	if err := s.UpdateEndpoint(ctx, ep); err != nil {
		t.Fatalf("UpdateEndpoint: %v", err)
	}
	got, err := s.FindEndpoint(ctx, "/api/search", http.MethodGet)
	if err != nil {
		t.Fatalf("FindEndpoint: %v", err)
	}
	if got.IsActive {
		t.Error("endpoint should be inactive after update")
	}

	missing := &domain.Endpoint{ID: "nope", Path: "/x", Method: http.MethodGet}
	if err := s.UpdateEndpoint(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateEndpoint missing: err = %v, want ErrNotFound", err)
	}
}

func TestMostPermissiveBudgetWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AssignRole(ctx, "u1", roleID(t, s, domain.RoleSubscriber)); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := s.AssignRole(ctx, "u1", roleID(t, s, domain.RoleEditor)); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	limits, err := s.RateLimitsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RateLimitsForUser: %v", err)
	}
	if limits.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want editor's 60", limits.RequestsPerMinute)
	}
}

func TestRateLimitsForUserWithoutRoles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RateLimitsForUser(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRoleAssignmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	editorID := roleID(t, s, domain.RoleEditor)
	if err := s.AssignRole(ctx, "u1", editorID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	// Assigning twice is a no-op, not an error.
	if err := s.AssignRole(ctx, "u1", editorID); err != nil {
		t.Fatalf("AssignRole repeat: %v", err)
	}

	names, err := s.RolesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RolesForUser: %v", err)
	}
	if len(names) != 1 || names[0] != domain.RoleEditor {
		t.Fatalf("RolesForUser = %v, want [editor]", names)
	}

	if err := s.UnassignRole(ctx, "u1", editorID); err != nil {
		t.Fatalf("UnassignRole: %v", err)
	}
	if err := s.UnassignRole(ctx, "u1", editorID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UnassignRole repeat: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRoleCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r, err := s.CreateRole(ctx, "temp")
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := s.SetRateLimits(ctx, r.ID, domain.RateLimits{RequestsPerMinute: 5}); err != nil {
		t.Fatalf("SetRateLimits: %v", err)
	}
	if err := s.AssignRole(ctx, "u1", r.ID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	names, err := s.RolesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RolesForUser: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("assignments survived role delete: %v", names)
	}
	if _, err := s.RateLimitsForUser(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("limits survived role delete: err = %v", err)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).UTC()
	tok := &storage.Token{
		UserID:    "u1",
		Name:      "ci",
		TokenHash: "hash-1",
		ExpiresAt: &expiry,
	}
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if tok.Status != storage.TokenActive {
		t.Errorf("Status = %q, want active", tok.Status)
	}

	got, err := s.FindTokenByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindTokenByHash: %v", err)
	}
	if got.UserID != "u1" || got.ExpiresAt == nil {
		t.Errorf("FindTokenByHash returned %+v", got)
	}

	if err := s.RevokeToken(ctx, tok.ID); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	got, err = s.FindTokenByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindTokenByHash after revoke: %v", err)
	}
	if got.Status != storage.TokenRevoked {
		t.Errorf("Status = %q, want revoked", got.Status)
	}

	if _, err := s.FindTokenByHash(ctx, "no-such-hash"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown hash: err = %v, want ErrNotFound", err)
	}
}

func TestTokenWithoutExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok := &storage.Token{UserID: "u1", Name: "forever", TokenHash: "hash-2"}
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	got, err := s.FindTokenByHash(ctx, "hash-2")
	if err != nil {
		t.Fatalf("FindTokenByHash: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", got.ExpiresAt)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := &storage.Session{
		TokenHash: "sess-hash",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.FindSessionByHash(ctx, "sess-hash")
	if err != nil {
		t.Fatalf("FindSessionByHash: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", got.UserID)
	}

	if err := s.DeleteSession(ctx, "sess-hash"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.FindSessionByHash(ctx, "sess-hash"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestPostCRUDAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &storage.Post{Title: "A", Slug: "a", Content: "aa", Status: "published", AuthorID: "u1"}
	if err := s.CreatePost(ctx, first); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	second := &storage.Post{Title: "B", Slug: "b", Content: "bb", AuthorID: "u1"}
	if err := s.CreatePost(ctx, second); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if second.Status != "draft" {
		t.Errorf("default Status = %q, want draft", second.Status)
	}

	// Slug is unique.
	dup := &storage.Post{Title: "A2", Slug: "a", Content: "x", AuthorID: "u1"}
	if err := s.CreatePost(ctx, dup); err == nil {
		t.Error("duplicate slug should fail")
	}

	published, err := s.ListPosts(ctx, storage.ListOptions{Status: "published"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(published) != 1 || published[0].Slug != "a" {
		t.Fatalf("published = %+v, want only slug a", published)
	}

	first.Status = "archived"
	first.Title = "A v2"
	if err := s.UpdatePost(ctx, first); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	got, err := s.GetPost(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "A v2" || got.Status != "archived" {
		t.Errorf("GetPost = %+v", got)
	}

	if err := s.DeletePost(ctx, first.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := s.GetPost(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestPostPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, slug := range []string{"p1", "p2", "p3"} {
		if err := s.CreatePost(ctx, &storage.Post{Title: slug, Slug: slug, Content: "c", AuthorID: "u1"}); err != nil {
			t.Fatalf("CreatePost %s: %v", slug, err)
		}
	}

	page, err := s.ListPosts(ctx, storage.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("first page: got %d posts, want 2", len(page))
	}
	page, err = s.ListPosts(ctx, storage.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPosts offset: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("second page: got %d posts, want 1", len(page))
	}
}
