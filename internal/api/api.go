// Package api holds the thin JSON handlers the gate wraps: posts, roles,
// tokens and the endpoint-descriptor admin listing. Authentication,
// authorization, rate limiting and caching all happen in the gate before
// these run; handlers only read the identity the gate attached.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwell-cms/inkgate/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// storeError maps store sentinels to responses; everything unexpected
// becomes a 500 without leaking detail.
func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
