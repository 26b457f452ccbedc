package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwell-cms/inkgate/internal/auth"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

// StoreVerifier verifies bearer tokens and session cookies against the
// persistence layer. Credentials are looked up by their SHA-256 hash.
type StoreVerifier struct {
	tokens   storage.TokenStore
	sessions storage.SessionStore
	now      func() time.Time
}

type StoreVerifierOption func(*StoreVerifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) StoreVerifierOption {
	return func(v *StoreVerifier) { v.now = now }
}

func NewStoreVerifier(tokens storage.TokenStore, sessions storage.SessionStore, opts ...StoreVerifierOption) *StoreVerifier {
	v := &StoreVerifier{tokens: tokens, sessions: sessions, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *StoreVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	t, err := v.tokens.FindTokenByHash(ctx, auth.HashToken(token))
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}
	if t.Status != storage.TokenActive {
		return "", fmt.Errorf("token %s is %s", t.ID, t.Status)
	}
	if t.ExpiresAt != nil && !v.now().Before(*t.ExpiresAt) {
		return "", fmt.Errorf("token %s expired", t.ID)
	}
	return t.UserID, nil
}

func (v *StoreVerifier) VerifySession(ctx context.Context, token string) (string, error) {
	sess, err := v.sessions.FindSessionByHash(ctx, auth.HashToken(token))
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	if !v.now().Before(sess.ExpiresAt) {
		return "", fmt.Errorf("session expired")
	}
	return sess.UserID, nil
}
