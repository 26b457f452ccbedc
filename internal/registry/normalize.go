package registry

import (
	"regexp"
	"strings"
)

// Placeholder replaces id-looking path segments in normalized patterns.
const Placeholder = "{id}"

// idSegment matches segments that look like record identifiers: numeric
// ids, UUIDs, and hex strings with optional hyphens. Word-like segments
// ("posts", "update-role") contain letters outside [a-f] and stay literal.
// The heuristic is deliberately greedy; descriptors are stored against the
// collapsed pattern, so ambiguity only costs a wider match, never a miss.
var idSegment = regexp.MustCompile(`^[0-9a-fA-F][0-9a-fA-F-]*$`)

// NormalizePath collapses dynamic path segments to the placeholder token,
// so /api/posts/123 and /api/posts/abc-def both key as /api/posts/{id}.
// Normalization is idempotent: the placeholder itself is never rewritten.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return path
	}

	trailing := strings.HasSuffix(path, "/") && len(path) > 1
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == Placeholder {
			continue
		}
		if idSegment.MatchString(seg) {
			segments[i] = Placeholder
		}
	}

	normalized := "/" + strings.Join(segments, "/")
	if trailing {
		normalized += "/"
	}
	return normalized
}
