package domain

// CacheStrategy selects where a gated endpoint's GET responses are cached.
type CacheStrategy string

const (
	CacheNone     CacheStrategy = "none"
	CacheInMemory CacheStrategy = "in_memory"
	CacheRedis    CacheStrategy = "redis"
	// CacheCDN delegates caching to the edge; the gate treats it as a no-op.
	CacheCDN CacheStrategy = "cdn"
)

// Endpoint is the stored descriptor for one gated API route. Path holds the
// normalized pattern with dynamic segments collapsed (e.g. /api/posts/{id}).
type Endpoint struct {
	ID                string
	Path              string
	Method            string
	IsActive          bool
	IsPublic          bool
	RequiredRoles     []string
	CacheStrategy     CacheStrategy
	CacheTTLSeconds   int
	RateLimitOverride *RateLimits
}

// RateLimits holds per-window request budgets. Only the minute window is
// enforced at the gate; hour and day are carried for the admin surface.
type RateLimits struct {
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int
}

// Identity is a resolved caller: an opaque user id plus the set of role
// names assigned to it. A caller may hold several roles; authorization
// passes if any of them is in the endpoint's required set.
type Identity struct {
	UserID string
	Roles  []string
}

// HasAnyRole reports whether the identity holds at least one of the
// required roles. An empty required set admits any authenticated caller.
func (id *Identity) HasAnyRole(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range id.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Role is a named permission level. Roles form a flat set; there is no
// implicit hierarchy, "higher" roles are listed explicitly per endpoint.
type Role struct {
	ID   string
	Name string
}

// Built-in role names seeded at first start.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleAuthor     = "author"
	RoleSubscriber = "subscriber"
)
