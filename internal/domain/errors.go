package domain

import "errors"

// Gate outcome taxonomy. Each sentinel maps to exactly one HTTP status at
// the boundary; callers classify with errors.Is.
var (
	// ErrEndpointNotFound covers both a missing descriptor and a descriptor
	// with is_active=false. Surfaced as 404.
	ErrEndpointNotFound = errors.New("endpoint not found or inactive")

	// ErrUnauthenticated means no credential resolved to an identity on a
	// non-public endpoint. Surfaced as 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized means the identity's roles do not intersect the
	// endpoint's required set. Surfaced as 403.
	ErrUnauthorized = errors.New("insufficient permissions")

	// ErrRateLimited means the caller exhausted its window budget.
	// Surfaced as 429 with retry metadata.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotFound is the generic missing-row sentinel for stores.
	ErrNotFound = errors.New("not found")
)
