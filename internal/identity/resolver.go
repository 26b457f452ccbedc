package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inkwell-cms/inkgate/internal/auth"
	"github.com/inkwell-cms/inkgate/internal/domain"
)

// SessionCookie is the cookie carrying the raw session token.
const SessionCookie = "inkgate_session"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (userID string, err error)
}

// SessionVerifier resolves a session-cookie token to a user id.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (userID string, err error)
}

// RoleSource resolves the role names assigned to a user.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID string) ([]string, error)
}

// Resolver determines the calling identity for a request. Exactly one
// credential path is attempted: a present Authorization header claims the
// bearer path even when invalid, otherwise the session cookie is tried.
// Invalid or expired credentials resolve to anonymous, never to an error,
// so public endpoints still proceed.
type Resolver struct {
	tokens   TokenVerifier
	sessions SessionVerifier
	roles    RoleSource
	logger   *slog.Logger
}

func NewResolver(tokens TokenVerifier, sessions SessionVerifier, roles RoleSource, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, sessions: sessions, roles: roles, logger: logger}
}

// Resolve returns the caller's identity, or nil for anonymous callers.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) *domain.Identity {
	userID := r.resolveUserID(ctx, req)
	if userID == "" {
		return nil
	}

	roles, err := r.roles.RolesForUser(ctx, userID)
	if err != nil {
		// Treated as no match rather than surfaced; the caller becomes
		// anonymous for this request.
		r.logger.Warn("role lookup failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return &domain.Identity{UserID: userID, Roles: roles}
}

func (r *Resolver) resolveUserID(ctx context.Context, req *http.Request) string {
	token, present, err := auth.ExtractBearer(req)
	if present {
		if err != nil {
			return ""
		}
		userID, err := r.tokens.VerifyToken(ctx, token)
		if err != nil {
			return ""
		}
		return userID
	}

	cookie, err := req.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	userID, err := r.sessions.VerifySession(ctx, cookie.Value)
	if err != nil {
		return ""
	}
	return userID
}
