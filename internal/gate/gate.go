package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-cms/inkgate/internal/cache"
	"github.com/inkwell-cms/inkgate/internal/domain"
	"github.com/inkwell-cms/inkgate/internal/ratelimit"
	"github.com/inkwell-cms/inkgate/internal/registry"
)

// identityContextKey is the context key for the resolved caller identity.
type identityContextKey struct{}

// WithIdentity attaches the resolved identity to the context.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFrom retrieves the resolved identity from context. Returns nil
// for anonymous callers and for allowlisted paths that bypass the gate.
func IdentityFrom(ctx context.Context) *domain.Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*domain.Identity); ok {
		return id
	}
	return nil
}

// Resolver supplies the caller identity for a request, nil for anonymous.
type Resolver interface {
	Resolve(ctx context.Context, req *http.Request) *domain.Identity
}

// LimitSource supplies role-level default request budgets. Returns
// domain.ErrNotFound when the user's roles carry no budget, which
// disables limiting for the request (matching the stored-config model:
// no row, no limit).
type LimitSource interface {
	RateLimitsForUser(ctx context.Context, userID string) (*domain.RateLimits, error)
}

// Gate wraps a downstream handler with the per-request authorization
// pipeline: PathCheck, Resolve, Identify, Authorize, RateLimit, CacheRead,
// Invoke, CacheWrite. Steps run strictly in order with early termination;
// rejections are final per request.
type Gate struct {
	registry *registry.Registry
	resolver Resolver
	limiter  *ratelimit.Limiter
	caches   cache.Strategies
	limits   LimitSource
	public   []string
	logger   *slog.Logger
}

type Option func(*Gate)

// WithPublicPaths sets the literal allowlist of paths that bypass the
// pipeline entirely. Entries match exactly; entries other than "/" also
// match every path below them. "/sign-in" covers "/sign-in/callback" but
// not the sibling "/sign-in-admin".
func WithPublicPaths(paths []string) Option {
	return func(g *Gate) { g.public = paths }
}

func New(reg *registry.Registry, resolver Resolver, limiter *ratelimit.Limiter,
	caches cache.Strategies, limits LimitSource, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		registry: reg,
		resolver: resolver,
		limiter:  limiter,
		caches:   caches,
		limits:   limits,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware returns the pipeline as standard middleware around next.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, next)
	})
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()
	path := r.URL.Path

	// PathCheck: allowlisted paths skip everything, including identity
	// resolution.
	if g.isPublicPath(path) {
		next.ServeHTTP(w, r)
		return
	}

	// Resolve the endpoint descriptor. Store failures are treated as "no
	// match", not retried.
	ep, err := g.registry.Lookup(ctx, path, r.Method)
	if err != nil {
		if !errors.Is(err, domain.ErrEndpointNotFound) {
			g.logger.Warn("endpoint lookup failed",
				slog.String("path", path),
				slog.String("method", r.Method),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, http.StatusNotFound, "Endpoint not found or inactive")
		return
	}

	// Identify. For public endpoints the identity is attached when
	// available but absence is not fatal.
	id := g.resolver.Resolve(ctx, r)
	if id != nil {
		ctx = WithIdentity(ctx, id)
		r = r.WithContext(ctx)
	}

	if !ep.IsPublic {
		if id == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !id.HasAnyRole(ep.RequiredRoles) {
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		if ok := g.enforceRateLimit(ctx, w, ep, id, path); !ok {
			return
		}
	}

	// CacheRead / Invoke / CacheWrite.
	store := g.caches.For(ep.CacheStrategy)
	if r.Method != http.MethodGet || ep.CacheTTLSeconds <= 0 || store == nil {
		next.ServeHTTP(w, r)
		return
	}

	key := cacheKey(path, r.Method, ep, id)
	if data, ok, err := store.Get(ctx, key); err != nil {
		// A caching error never fails the request.
		g.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	rec := &cacheRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	next.ServeHTTP(rec, r)

	if rec.statusCode == http.StatusOK && isJSON(rec.Header().Get("Content-Type")) {
		ttl := time.Duration(ep.CacheTTLSeconds) * time.Second
		if err := store.Set(ctx, key, rec.body, ttl); err != nil {
			g.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// enforceRateLimit applies the endpoint override or the caller's
// role-level default budget. It reports false after writing the 429.
func (g *Gate) enforceRateLimit(ctx context.Context, w http.ResponseWriter, ep *domain.Endpoint, id *domain.Identity, path string) bool {
	limits := ep.RateLimitOverride
	if limits == nil {
		var err error
		limits, err = g.limits.RateLimitsForUser(ctx, id.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return true
		}
		if err != nil {
			g.logger.Error("rate limit lookup failed",
				slog.String("user_id", id.UserID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return false
		}
	}
	if limits == nil || limits.RequestsPerMinute <= 0 {
		return true
	}

	res, err := g.limiter.Allow(ctx, id.UserID+":"+path, limits.RequestsPerMinute)
	if err != nil {
		g.logger.Error("rate limit check failed",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}

	setRateLimitHeaders(w, res)
	if !res.Allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Rate limit exceeded",
			"limit":     res.Limit,
			"remaining": res.Remaining,
			"reset":     res.Reset.UnixMilli(),
		})
		return false
	}
	return true
}

func (g *Gate) isPublicPath(path string) bool {
	for _, p := range g.public {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// cacheKey scopes entries per caller on non-public endpoints so one
// identity's cached response never satisfies another's read.
func cacheKey(path, method string, ep *domain.Endpoint, id *domain.Identity) string {
	scope := "public"
	if !ep.IsPublic && id != nil {
		scope = id.UserID
	}
	return path + ":" + method + ":" + scope
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.UnixMilli(), 10))
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// cacheRecorder tees the response body so a successful JSON result can be
// written back to the cache after the handler returns.
type cacheRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        []byte
}

func (rec *cacheRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.statusCode = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *cacheRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	rec.body = append(rec.body, b...)
	return rec.ResponseWriter.Write(b)
}

// Flush forwards Flush to the underlying ResponseWriter if it supports
// http.Flusher.
func (rec *cacheRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
