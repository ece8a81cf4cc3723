// Package api provides HTTP handlers for the live-assist API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/buynest/live-assist/internal/assist"
	"github.com/buynest/live-assist/internal/store"
)

// RelayClientHeader optionally carries the caller's relay client ID so
// relay emissions triggered over REST can honor the everyone-but-me rule.
const RelayClientHeader = "X-Relay-Client"

// Handler provides common handler utilities.
type Handler struct {
	repo    store.Repository
	handoff *assist.Handoff
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, handoff *assist.Handoff) *Handler {
	return &Handler{repo: repo, handoff: handoff}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Fail writes the storefront's error envelope: {"success": false, "message": ...}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "message": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
