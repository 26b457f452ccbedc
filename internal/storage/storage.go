package storage

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkgate/internal/domain"
)

// Token is a bearer credential minted for programmatic API access. Only
// the SHA-256 hash of the token material is stored.
type Token struct {
	ID          string
	UserID      string
	Name        string
	Description string
	TokenHash   string
	Status      string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Token statuses.
const (
	TokenActive  = "active"
	TokenRevoked = "revoked"
)

// Session is a cookie-backed login session. The cookie carries the raw
// session token; the store keeps its hash.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Post is the representative CMS resource served by the gated API.
type Post struct {
	ID        string
	Title     string
	Slug      string
	Content   string
	Status    string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOptions narrows and pages list queries.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

// EndpointStore holds the dynamic gate configuration rows.
type EndpointStore interface {
	// FindEndpoint is a point query on the stored (normalized path, method)
	// pair. Returns domain.ErrNotFound when no row matches.
	FindEndpoint(ctx context.Context, path, method string) (*domain.Endpoint, error)
	ListEndpoints(ctx context.Context) ([]*domain.Endpoint, error)
	CreateEndpoint(ctx context.Context, ep *domain.Endpoint) error
	UpdateEndpoint(ctx context.Context, ep *domain.Endpoint) error
}

// RoleStore holds roles, per-user assignments and per-role request budgets.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	CreateRole(ctx context.Context, name string) (*domain.Role, error)
	UpdateRole(ctx context.Context, id, name string) error
	DeleteRole(ctx context.Context, id string) error

	// RolesForUser returns every role name assigned to the user; an empty
	// slice means the caller is authenticated but holds no permissions.
	RolesForUser(ctx context.Context, userID string) ([]string, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	UnassignRole(ctx context.Context, userID, roleID string) error

	// RateLimitsForUser resolves the role-level default budget for the
	// user. With several roles the most permissive minute budget wins.
	// Returns domain.ErrNotFound when no assigned role carries limits.
	RateLimitsForUser(ctx context.Context, userID string) (*domain.RateLimits, error)
	SetRateLimits(ctx context.Context, roleID string, limits domain.RateLimits) error
}

// TokenStore holds API tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, t *Token) error
	ListTokens(ctx context.Context, userID string) ([]*Token, error)
	RevokeToken(ctx context.Context, id string) error
	FindTokenByHash(ctx context.Context, hash string) (*Token, error)
}

// SessionStore holds login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	FindSessionByHash(ctx context.Context, hash string) (*Session, error)
	DeleteSession(ctx context.Context, hash string) error
}

// PostStore holds the CMS content rows.
type PostStore interface {
	CreatePost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]*Post, error)
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	EndpointStore
	RoleStore
	TokenStore
	SessionStore
	PostStore
	Close() error
}
