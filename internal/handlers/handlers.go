// Package handlers holds the HTTP endpoints. Handlers decode and validate
// input, call into the core packages and translate typed errors onto
// statuses; they never contain billing or inventory logic themselves.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
)

// decode reads a JSON body into dst. On failure it writes the 400 itself
// and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	return true
}

// pathID parses the {id} wildcard. Writes the 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || n == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(n), true
}

// owner pulls the authenticated user the gate stored on the context. The
// gate runs on every route using these handlers, so a miss is a wiring
// bug and answers 401 rather than panicking.
func owner(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "AUTH_ERROR", nil)
		return nil, false
	}
	return u, true
}
