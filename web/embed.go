// Package web embeds the page templates and static assets of the game and
// provides the handlers that serve them.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed templates static
var assets embed.FS

// Page names accepted by Pages.Render.
const (
	PageLanding = "landing"
	PageGame    = "game"
)

// Pages holds one parsed template set per page. Every page shares the base layout.
type Pages struct {
	sets map[string]*template.Template
}

// LoadPages parses the embedded templates.
func LoadPages() (*Pages, error) {
	p := &Pages{sets: make(map[string]*template.Template)}
	for _, name := range []string{PageLanding, PageGame} {
		t, err := template.ParseFS(assets, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// Render writes page with data as an HTML response.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := p.sets[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	if err := t.ExecuteTemplate(&b, "base", data); err != nil {
		slog.Error("web: failed to render page", "page", page, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(b.String())); err != nil {
		slog.Debug("web: failed to write page", "page", page, "error", err)
	}
}

// StaticHandler serves the embedded static assets under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(assets, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(subFS)))
}
