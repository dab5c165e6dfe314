package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPagesAndRender(t *testing.T) {
	pages, err := LoadPages()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	pages.Render(rec, http.StatusOK, PageLanding, map[string]any{
		"Title":       "Find My Heart",
		"Description": "desc",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Find My Heart</title>")
	assert.Contains(t, rec.Body.String(), `action="/auth/signin"`)
}

func TestRenderUnknownPage(t *testing.T) {
	pages, err := LoadPages()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	pages.Render(rec, http.StatusOK, "missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticHandler(t *testing.T) {
	h := StaticHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/ws/game")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/nope.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
