package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkwell-cms/inkgate/internal/cache"
	"github.com/inkwell-cms/inkgate/internal/domain"
)

// Source is the descriptor store collaborator. FindEndpoint performs a
// point query against the stored (normalized path, method) pair and
// returns domain.ErrNotFound when no row matches.
type Source interface {
	FindEndpoint(ctx context.Context, path, method string) (*domain.Endpoint, error)
}

// Registry resolves raw request paths to endpoint descriptors. Descriptor
// rows are dynamic configuration, so lookups go through a short-lived
// read-through cache rather than hitting the store on every request.
type Registry struct {
	source Source
	cache  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Registry)

// WithCache enables read-through caching of resolved descriptors.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(r *Registry) {
		r.cache = store
		r.ttl = ttl
	}
}

func New(source Source, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{source: source, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup normalizes the raw path and resolves the active descriptor for
// (normalized path, method). Missing and inactive descriptors both return
// domain.ErrEndpointNotFound; the two are indistinguishable to callers.
func (r *Registry) Lookup(ctx context.Context, rawPath, method string) (*domain.Endpoint, error) {
	normalized := NormalizePath(rawPath)
	method = strings.ToUpper(method)
	key := "endpoint:" + method + ":" + normalized

	if r.cache != nil {
		if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var ep domain.Endpoint
			if err := json.Unmarshal(data, &ep); err == nil {
				return &ep, nil
			}
		}
	}

	ep, err := r.source.FindEndpoint(ctx, normalized, method)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrEndpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find endpoint %s %s: %w", method, normalized, err)
	}
	if !ep.IsActive {
		return nil, domain.ErrEndpointNotFound
	}

	if r.cache != nil {
		if data, err := json.Marshal(ep); err == nil {
			if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
				r.logger.Warn("descriptor cache write failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return ep, nil
}
