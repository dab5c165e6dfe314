// Package api provides HTTP handlers for the Find My Heart server.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ashureev/find-my-heart/internal/identity"
	"github.com/ashureev/find-my-heart/internal/play"
	"github.com/ashureev/find-my-heart/internal/store"
	"github.com/ashureev/find-my-heart/web"
)

const (
	siteTitle       = "Find My Heart"
	siteDescription = "A romantic puzzle game for long-distance couples"
	maxBodyBytes    = 4 << 10
)

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	auth     *identity.Authenticator
	registry *play.Registry
	pages    *web.Pages
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, auth *identity.Authenticator, registry *play.Registry, pages *web.Pages) *Handler {
	return &Handler{
		repo:     repo,
		auth:     auth,
		registry: registry,
		pages:    pages,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a small JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// wantsJSON reports whether the client talks JSON rather than HTML forms.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
