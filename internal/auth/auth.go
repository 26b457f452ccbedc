package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// HashToken creates the SHA-256 hash of a credential for storage and
// lookup. Raw token material is never persisted.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ExtractBearer extracts the bearer credential from the Authorization
// header. The second return distinguishes "header absent" from "header
// present but malformed": a present header claims the bearer resolution
// path even when its value is unusable.
func ExtractBearer(r *http.Request) (token string, present bool, err error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", true, fmt.Errorf("invalid Authorization header format")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", true, fmt.Errorf("unsupported authorization scheme %q", parts[0])
	}
	return parts[1], true, nil
}
